// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package orchestrator sequences repair runs: scan the libraries, hotswap
// what the secondary library can cover, queue remote searches for the rest,
// drain the action queue, then rescan. Exactly one run executes at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/metrics/collector"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
	"github.com/Bollo123view/refresherr/internal/services/hotswap"
	"github.com/Bollo123view/refresherr/internal/services/notifications"
	"github.com/Bollo123view/refresherr/internal/services/remotesearch"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a repair run is already in progress")

// ConfigProvider returns the current configuration snapshot.
type ConfigProvider func() *domain.Config

// Service owns the repair-run lifecycle and the auto-run scheduler.
type Service struct {
	cfg      ConfigProvider
	scanner  *scanner.Service
	hotswap  *hotswap.Service
	search   *remotesearch.Service
	dispatch *dispatch.Service
	runs     *models.RepairRunStore
	state    *models.OrchestratorStateStore
	metrics  *collector.RepairCollector
	notifier *notifications.Service

	// Held for the full duration of a run; the DB single-flight insert backs
	// this up across restarts.
	runMu sync.Mutex

	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc

	wg sync.WaitGroup
}

// NewService wires the orchestrator.
func NewService(
	cfg ConfigProvider,
	scannerSvc *scanner.Service,
	hotswapSvc *hotswap.Service,
	searchSvc *remotesearch.Service,
	dispatchSvc *dispatch.Service,
	runs *models.RepairRunStore,
	state *models.OrchestratorStateStore,
) *Service {
	return &Service{
		cfg:      cfg,
		scanner:  scannerSvc,
		hotswap:  hotswapSvc,
		search:   searchSvc,
		dispatch: dispatchSvc,
		runs:     runs,
		state:    state,
	}
}

// SetMetrics attaches the repair metrics collector. Optional; nil disables
// metric updates.
func (s *Service) SetMetrics(m *collector.RepairCollector) {
	s.metrics = m
}

// SetNotifier attaches the webhook notifier. Optional; nil disables run
// notifications.
func (s *Service) SetNotifier(n *notifications.Service) {
	s.notifier = n
}

// Start recovers stuck runs and launches the auto-run scheduler.
func (s *Service) Start(ctx context.Context) {
	if err := s.recoverStuckRuns(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to recover stuck repair runs")
	}

	s.wg.Add(1)
	go s.loop(ctx)
}

// Wait blocks until the scheduler and any in-flight run have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAutoRun(ctx)
		}
	}
}

func (s *Service) recoverStuckRuns(ctx context.Context) error {
	threshold := s.cfg().Orchestrator.StuckRunThreshold
	if threshold <= 0 {
		threshold = 2 * time.Hour
	}
	return s.runs.MarkStuckRunsFailed(ctx, threshold)
}

func (s *Service) checkAutoRun(ctx context.Context) {
	cfg := s.cfg()
	if !cfg.Orchestrator.Enabled || cfg.Orchestrator.AutoInterval <= 0 {
		return
	}

	state, err := s.state.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read orchestrator state")
		return
	}
	if !state.Enabled {
		return
	}
	if state.LastAutoRun != nil && time.Since(*state.LastAutoRun) < cfg.Orchestrator.AutoInterval {
		return
	}

	if _, err := s.TriggerRun(ctx, models.RunPhaseFull, models.RunTriggerAuto); err != nil {
		if !errors.Is(err, ErrRunInProgress) {
			log.Error().Err(err).Msg("Scheduled repair run failed to start")
		}
		return
	}

	if err := s.state.TouchLastAutoRun(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to record auto run timestamp")
	}
}

// TriggerRun starts a repair run of the given phase in the background and
// returns its id. Returns ErrRunInProgress when one is already active.
func (s *Service) TriggerRun(ctx context.Context, phase, triggeredBy string) (int64, error) {
	cfg := s.cfg()

	// Refuse early when the mount is down; a run would only mass-fail.
	if err := s.scanner.CheckMount(cfg); err != nil {
		return 0, err
	}

	if !s.runMu.TryLock() {
		return 0, ErrRunInProgress
	}

	runID, err := s.runs.CreateRunIfNoActive(ctx, phase, triggeredBy)
	if err != nil {
		s.runMu.Unlock()
		if errors.Is(err, models.ErrRunAlreadyActive) {
			return 0, ErrRunInProgress
		}
		return 0, err
	}

	// Runs outlive the request that triggered them, bounded by MaxRunDuration.
	base := context.WithoutCancel(ctx)
	var runCtx context.Context
	var cancel context.CancelFunc
	if cfg.Orchestrator.MaxRunDuration > 0 {
		runCtx, cancel = context.WithTimeout(base, cfg.Orchestrator.MaxRunDuration)
	} else {
		runCtx, cancel = context.WithCancel(base)
	}

	s.cancelMu.Lock()
	s.cancelFunc = cancel
	s.cancelMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		defer cancel()
		s.executeRun(runCtx, runID, phase, triggeredBy, cfg)
	}()

	log.Info().Int64("run", runID).Str("phase", phase).Str("trigger", triggeredBy).Msg("Repair run started")
	return runID, nil
}

// CancelRun aborts the in-flight run, if any.
func (s *Service) CancelRun() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

func (s *Service) executeRun(ctx context.Context, runID int64, phase, triggeredBy string, cfg *domain.Config) {
	counts := models.RunCounts{}

	fail := func(err error) {
		log.Error().Err(err).Int64("run", runID).Msg("Repair run failed")
		if dbErr := s.runs.UpdateRunFailed(context.WithoutCancel(ctx), runID, counts, err.Error()); dbErr != nil {
			log.Error().Err(dbErr).Int64("run", runID).Msg("Failed to persist run failure")
		}
		if s.metrics != nil {
			s.metrics.GetRunTotal(phase, triggeredBy, models.RunStatusFailed).Inc()
		}
		s.notifier.Notify(context.WithoutCancel(ctx), notifications.Event{
			Type:         notifications.EventRunFailed,
			RunID:        runID,
			Phase:        phase,
			Trigger:      triggeredBy,
			Counts:       counts,
			ErrorMessage: err.Error(),
		})
	}

	// Fresh inventory before deciding anything.
	if _, err := s.scanner.Scan(ctx, cfg); err != nil {
		fail(fmt.Errorf("library scan: %w", err))
		return
	}

	broken, err := s.scanner.ListBroken(ctx)
	if err != nil {
		fail(err)
		return
	}
	counts.BrokenFound = len(broken)
	if s.metrics != nil {
		s.metrics.BrokenFoundTotal.Add(float64(len(broken)))
	}

	remaining := broken

	if phase != models.RunPhaseSearch {
		remaining = s.hotswapPass(ctx, broken, &counts)
		if ctx.Err() != nil {
			fail(ctx.Err())
			return
		}
	}

	if phase != models.RunPhaseHotswap {
		if err := s.searchPass(ctx, remaining, cfg, &counts); err != nil {
			fail(err)
			return
		}
	}

	if cfg.Orchestrator.RescanAfterRepair {
		if _, err := s.scanner.Scan(ctx, cfg); err != nil {
			fail(fmt.Errorf("post-repair rescan: %w", err))
			return
		}
	}

	if err := s.runs.UpdateRunCompleted(context.WithoutCancel(ctx), runID, counts); err != nil {
		log.Error().Err(err).Int64("run", runID).Msg("Failed to persist run completion")
		return
	}
	if s.metrics != nil {
		s.metrics.GetRunTotal(phase, triggeredBy, models.RunStatusCompleted).Inc()
	}
	s.notifier.Notify(context.WithoutCancel(ctx), notifications.Event{
		Type:    notifications.EventRunCompleted,
		RunID:   runID,
		Phase:   phase,
		Trigger: triggeredBy,
		Counts:  counts,
	})

	log.Info().
		Int64("run", runID).
		Int("broken", counts.BrokenFound).
		Int("repaired", counts.Repaired).
		Int("skipped", counts.Skipped).
		Int("failed", counts.Failed).
		Msg("Repair run completed")
}

// hotswapPass tries the donor pool for every broken link. A failure on one
// link never aborts the pass; it is counted and the next link is tried.
func (s *Service) hotswapPass(ctx context.Context, broken []*models.Symlink, counts *models.RunCounts) []*models.Symlink {
	if !s.hotswap.Enabled() || len(broken) == 0 {
		return broken
	}

	if _, err := s.hotswap.RebuildIndex(ctx); err != nil {
		log.Error().Err(err).Msg("Donor index rebuild failed, skipping hotswap pass")
		return broken
	}

	var remaining []*models.Symlink
	for _, link := range broken {
		if ctx.Err() != nil {
			return remaining
		}

		outcome, err := s.hotswap.Attempt(ctx, link)
		if err != nil {
			log.Error().Err(err).Str("link", link.Path).Msg("Hotswap attempt failed")
			counts.Failed++
			if s.metrics != nil {
				s.metrics.GetHotswapTotal("error").Inc()
			}
			continue
		}

		if s.metrics != nil {
			s.metrics.GetHotswapTotal(string(outcome)).Inc()
		}

		switch outcome {
		case hotswap.OutcomeRepaired:
			counts.Repaired++
		case hotswap.OutcomeUnsafe:
			counts.Skipped++
		default:
			remaining = append(remaining, link)
		}
	}
	return remaining
}

// searchPass queues remote searches for whatever hotswap left behind, then
// drains the action queue.
func (s *Service) searchPass(ctx context.Context, remaining []*models.Symlink, cfg *domain.Config, counts *models.RunCounts) error {
	if len(remaining) > 0 {
		queued, err := s.search.Queue(ctx, remaining)
		if err != nil {
			return fmt.Errorf("queue remote searches: %w", err)
		}
		counts.Skipped += queued.AlreadyPending + queued.Unrouted
		if s.metrics != nil {
			s.metrics.GetSearchQueuedTotal("enqueued").Add(float64(queued.Enqueued))
			s.metrics.GetSearchQueuedTotal("already_pending").Add(float64(queued.AlreadyPending))
			s.metrics.GetSearchQueuedTotal("unrouted").Add(float64(queued.Unrouted))
		}
	}

	// A batch size of zero leaves the queue for a later pass.
	if cfg.Orchestrator.DispatchBatchSize > 0 {
		drained, err := s.dispatch.ProcessPending(ctx, cfg.Orchestrator.DispatchBatchSize)
		if err != nil {
			return fmt.Errorf("dispatch actions: %w", err)
		}
		counts.Repaired += drained.Succeeded
		counts.Failed += drained.Failed
		if s.metrics != nil {
			s.metrics.GetDispatchTotal("ok").Add(float64(drained.Succeeded))
			s.metrics.GetDispatchTotal("failed").Add(float64(drained.Failed))
		}
	}
	return nil
}

// Enable turns automatic runs on.
func (s *Service) Enable(ctx context.Context) error {
	return s.state.SetEnabled(ctx, true)
}

// Disable turns automatic runs off. In-flight runs finish normally.
func (s *Service) Disable(ctx context.Context) error {
	return s.state.SetEnabled(ctx, false)
}

// Status is the orchestrator's externally visible state.
type Status struct {
	Enabled     bool              `json:"enabled"`
	LastAutoRun *time.Time        `json:"lastAutoRun,omitempty"`
	ActiveRun   *models.RepairRun `json:"activeRun,omitempty"`
}

// Status reports the toggle, last auto run, and the active run if any.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	state, err := s.state.Get(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.runs.ActiveRun(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Enabled:     state.Enabled,
		LastAutoRun: state.LastAutoRun,
		ActiveRun:   active,
	}, nil
}

// ListRuns returns recent run history.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]*models.RepairRun, error) {
	return s.runs.ListRuns(ctx, limit)
}

// GetRun returns a single run by id.
func (s *Service) GetRun(ctx context.Context, id int64) (*models.RepairRun, error) {
	return s.runs.GetRun(ctx, id)
}
