// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/buildinfo"
	"github.com/Bollo123view/refresherr/internal/config"
	"github.com/Bollo123view/refresherr/internal/database"
	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/logger"
	"github.com/Bollo123view/refresherr/internal/metrics"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/pathmap"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
	"github.com/Bollo123view/refresherr/internal/services/hotswap"
	"github.com/Bollo123view/refresherr/internal/services/notifications"
	"github.com/Bollo123view/refresherr/internal/services/orchestrator"
	"github.com/Bollo123view/refresherr/internal/services/remotesearch"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
)

// app wires configuration, storage, and services for the CLI commands.
type app struct {
	cfg *config.AppConfig
	db  *database.DB

	symlinks *models.SymlinkStore
	actions  *models.ActionStore
	runs     *models.RepairRunStore

	scanner      *scanner.Service
	hotswap      *hotswap.Service
	search       *remotesearch.Service
	dispatch     *dispatch.Service
	notifier     *notifications.Service
	orchestrator *orchestrator.Service
	metrics      *metrics.Manager
}

func newApp(configPath string) (*app, error) {
	appCfg, err := config.New(configPath, buildinfo.Version)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := appCfg.Config()

	if err := logger.Setup(cfg); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	db, err := database.New(appCfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	symlinks := models.NewSymlinkStore(db)
	actions := models.NewActionStore(db)
	runs := models.NewRepairRunStore(db)
	state := models.NewOrchestratorStateStore(db)
	items := models.NewHotswapItemStore(db)

	scannerSvc := scanner.NewService(symlinks, pathmap.NewMapper(cfg.PathMappings))
	hotswapSvc := hotswap.NewService(items, actions, cfg)
	searchSvc := remotesearch.NewService(actions, cfg)
	dispatchSvc := dispatch.NewService(actions, cfg)
	notifierSvc := notifications.NewService(cfg)

	orchestratorSvc := orchestrator.NewService(appCfg.Config,
		scannerSvc, hotswapSvc, searchSvc, dispatchSvc, runs, state)
	orchestratorSvc.SetNotifier(notifierSvc)

	a := &app{
		cfg:          appCfg,
		db:           db,
		symlinks:     symlinks,
		actions:      actions,
		runs:         runs,
		scanner:      scannerSvc,
		hotswap:      hotswapSvc,
		search:       searchSvc,
		dispatch:     dispatchSvc,
		notifier:     notifierSvc,
		orchestrator: orchestratorSvc,
	}

	if cfg.MetricsEnabled {
		a.metrics = metrics.NewManager(symlinks, actions, items, runs)
		orchestratorSvc.SetMetrics(a.metrics.RepairCollector())
	}

	appCfg.OnReload(a.applyConfig)

	return a, nil
}

// applyConfig fans a reloaded configuration out to the running services.
func (a *app) applyConfig(cfg *domain.Config) {
	a.scanner.SetMapper(pathmap.NewMapper(cfg.PathMappings))
	a.hotswap.ApplyConfig(cfg)
	a.search.ApplyConfig(cfg)
	a.dispatch.ApplyConfig(cfg)
	a.notifier.ApplyConfig(cfg)
	log.Info().Msg("Configuration reload applied to services")
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
