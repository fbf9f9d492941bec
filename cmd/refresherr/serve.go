// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Bollo123view/refresherr/internal/api"
	"github.com/Bollo123view/refresherr/internal/buildinfo"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the repair daemon and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.orchestrator.Start(ctx)

			server := api.NewServer(&api.Dependencies{
				Config:       a.cfg,
				Version:      buildinfo.Version,
				Orchestrator: a.orchestrator,
				Scanner:      a.scanner,
				Dispatch:     a.dispatch,
				SymlinkStore: a.symlinks,
				ActionStore:  a.actions,
				Metrics:      a.metrics,
			})

			cfg := a.cfg.Config()
			httpServer := &http.Server{
				Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", httpServer.Addr).Str("version", buildinfo.Version).Msg("HTTP server listening")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("HTTP server shutdown failed")
			}

			a.orchestrator.CancelRun()
			a.orchestrator.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/refresherr/config.yaml)")

	return cmd
}
