// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/metrics/collector"
	"github.com/Bollo123view/refresherr/internal/models"
)

type Manager struct {
	registry         *prometheus.Registry
	repairCollector  *collector.RepairCollector
	libraryCollector *collector.LibraryCollector
}

func NewManager(symlinks *models.SymlinkStore, actions *models.ActionStore, items *models.HotswapItemStore, runs *models.RepairRunStore) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repairCollector := collector.NewRepairCollector(registry)

	libraryCollector := collector.NewLibraryCollector(symlinks, actions, items, runs)
	registry.MustRegister(libraryCollector)

	log.Info().Msg("Metrics manager initialized with repair and library collectors")

	return &Manager{
		registry:         registry,
		repairCollector:  repairCollector,
		libraryCollector: libraryCollector,
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) RepairCollector() *collector.RepairCollector {
	return m.repairCollector
}
