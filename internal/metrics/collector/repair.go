// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

type RepairCollector struct {
	RunTotal          *prometheus.CounterVec
	HotswapTotal      *prometheus.CounterVec
	SearchQueuedTotal *prometheus.CounterVec
	DispatchTotal     *prometheus.CounterVec
	BrokenFoundTotal  prometheus.Counter
}

func NewRepairCollector(r *prometheus.Registry) *RepairCollector {
	m := &RepairCollector{
		RunTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refresherr",
			Subsystem: "repair",
			Name:      "run_total",
			Help:      "Total number of repair runs",
		}, []string{"phase", "triggered_by", "status"}),
		HotswapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refresherr",
			Subsystem: "repair",
			Name:      "hotswap_total",
			Help:      "Total number of hotswap attempts by outcome",
		}, []string{"outcome"}),
		SearchQueuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refresherr",
			Subsystem: "repair",
			Name:      "search_queued_total",
			Help:      "Total number of remote search queue results by outcome",
		}, []string{"outcome"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refresherr",
			Subsystem: "repair",
			Name:      "dispatch_total",
			Help:      "Total number of dispatched search actions by result",
		}, []string{"result"}),
		BrokenFoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refresherr",
			Subsystem: "repair",
			Name:      "broken_found_total",
			Help:      "Total number of broken symlinks found across runs",
		}),
	}

	r.MustRegister(m.RunTotal)
	r.MustRegister(m.HotswapTotal)
	r.MustRegister(m.SearchQueuedTotal)
	r.MustRegister(m.DispatchTotal)
	r.MustRegister(m.BrokenFoundTotal)
	return m
}

func (m *RepairCollector) GetRunTotal(phase, triggeredBy, status string) prometheus.Counter {
	return m.RunTotal.With(prometheus.Labels{
		"phase":        phase,
		"triggered_by": triggeredBy,
		"status":       status,
	})
}

func (m *RepairCollector) GetHotswapTotal(outcome string) prometheus.Counter {
	return m.HotswapTotal.With(prometheus.Labels{"outcome": outcome})
}

func (m *RepairCollector) GetSearchQueuedTotal(outcome string) prometheus.Counter {
	return m.SearchQueuedTotal.With(prometheus.Labels{"outcome": outcome})
}

func (m *RepairCollector) GetDispatchTotal(result string) prometheus.Counter {
	return m.DispatchTotal.With(prometheus.Labels{"result": result})
}
