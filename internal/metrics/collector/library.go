// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/models"
)

// LibraryCollector reports the current library state from the database
// on every scrape.
type LibraryCollector struct {
	symlinks *models.SymlinkStore
	actions  *models.ActionStore
	items    *models.HotswapItemStore
	runs     *models.RepairRunStore

	symlinksDesc     *prometheus.Desc
	actionsDesc      *prometheus.Desc
	hotswapItemsDesc *prometheus.Desc
	runActiveDesc    *prometheus.Desc
	scrapeErrorsDesc *prometheus.Desc
}

func NewLibraryCollector(symlinks *models.SymlinkStore, actions *models.ActionStore, items *models.HotswapItemStore, runs *models.RepairRunStore) *LibraryCollector {
	return &LibraryCollector{
		symlinks: symlinks,
		actions:  actions,
		items:    items,
		runs:     runs,

		symlinksDesc: prometheus.NewDesc(
			"refresherr_symlinks",
			"Number of tracked symlinks by status",
			[]string{"status"},
			nil,
		),
		actionsDesc: prometheus.NewDesc(
			"refresherr_actions",
			"Number of search actions by status",
			[]string{"status"},
			nil,
		),
		hotswapItemsDesc: prometheus.NewDesc(
			"refresherr_hotswap_items",
			"Number of indexed hotswap donor items",
			nil,
			nil,
		),
		runActiveDesc: prometheus.NewDesc(
			"refresherr_repair_run_active",
			"Whether a repair run is currently active (1=active, 0=idle)",
			nil,
			nil,
		),
		scrapeErrorsDesc: prometheus.NewDesc(
			"refresherr_scrape_errors_total",
			"Total number of scrape errors by type",
			[]string{"type"},
			nil,
		),
	}
}

func (c *LibraryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.symlinksDesc
	ch <- c.actionsDesc
	ch <- c.hotswapItemsDesc
	ch <- c.runActiveDesc
	ch <- c.scrapeErrorsDesc
}

func (c *LibraryCollector) reportError(ch chan<- prometheus.Metric, errorType string) {
	ch <- prometheus.MustNewConstMetric(
		c.scrapeErrorsDesc,
		prometheus.CounterValue,
		1,
		errorType,
	)
}

func (c *LibraryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if counts, err := c.symlinks.Counts(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to collect symlink counts")
		c.reportError(ch, "symlinks")
	} else {
		for _, status := range []string{models.SymlinkStatusOK, models.SymlinkStatusBroken} {
			ch <- prometheus.MustNewConstMetric(
				c.symlinksDesc,
				prometheus.GaugeValue,
				float64(counts[status]),
				status,
			)
		}
	}

	if counts, err := c.actions.Counts(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to collect action counts")
		c.reportError(ch, "actions")
	} else {
		for _, status := range []string{models.ActionStatusPending, models.ActionStatusSent, models.ActionStatusOK, models.ActionStatusFailed} {
			ch <- prometheus.MustNewConstMetric(
				c.actionsDesc,
				prometheus.GaugeValue,
				float64(counts[status]),
				status,
			)
		}
	}

	if n, err := c.items.Count(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to collect hotswap item count")
		c.reportError(ch, "hotswap_items")
	} else {
		ch <- prometheus.MustNewConstMetric(c.hotswapItemsDesc, prometheus.GaugeValue, float64(n))
	}

	if run, err := c.runs.ActiveRun(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to collect active run state")
		c.reportError(ch, "repair_runs")
	} else {
		active := 0.0
		if run != nil {
			active = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.runActiveDesc, prometheus.GaugeValue, active)
	}
}
