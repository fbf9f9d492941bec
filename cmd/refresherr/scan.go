// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"time"

	"github.com/spf13/cobra"
)

func RunScanCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the libraries once and report broken symlinks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.scanner.Scan(cmd.Context(), a.cfg.Config())
			if err != nil {
				return err
			}

			cmd.Printf("Scanned %d symlinks in %s\n", result.Total, result.Elapsed.Round(time.Millisecond))
			cmd.Printf("Broken: %d\n", result.Broken)
			cmd.Printf("Pruned: %d\n", result.Pruned)

			if result.Broken > 0 {
				broken, err := a.scanner.ListBroken(cmd.Context())
				if err != nil {
					return err
				}
				for _, link := range broken {
					cmd.Printf("  %s -> %s\n", link.Path, link.Target)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")

	return cmd
}
