// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notifications posts repair-run outcomes to a Discord-style webhook.
// Delivery is best-effort: a failed post is logged and never affects the run
// that produced it.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/buildinfo"
	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
)

type EventType string

const (
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

const maxMessageLength = 420

// Event carries the outcome of one repair run.
type Event struct {
	Type         EventType
	RunID        int64
	Phase        string
	Trigger      string
	Counts       models.RunCounts
	ErrorMessage string
}

// settings is one immutable snapshot of the config-derived state; reloads
// publish a fresh snapshot instead of mutating what an in-flight Notify
// may be reading.
type settings struct {
	webhookURL  string
	httpClient  *http.Client
	onCompleted bool
	onFailed    bool
}

// Service delivers run events to the configured webhook.
type Service struct {
	mu       sync.RWMutex
	settings *settings
}

// NewService creates a notifier from config.
func NewService(cfg *domain.Config) *Service {
	s := &Service{}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig publishes new webhook settings after a config reload.
func (s *Service) ApplyConfig(cfg *domain.Config) {
	timeout := cfg.Notifications.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	next := &settings{
		webhookURL:  strings.TrimSpace(cfg.Notifications.WebhookURL),
		httpClient:  &http.Client{Timeout: timeout},
		onCompleted: cfg.Notifications.OnCompleted,
		onFailed:    cfg.Notifications.OnFailed,
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
}

func (s *Service) snapshot() *settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (c *settings) wants(eventType EventType) bool {
	if c.webhookURL == "" {
		return false
	}
	switch eventType {
	case EventRunCompleted:
		return c.onCompleted
	case EventRunFailed:
		return c.onFailed
	}
	return false
}

// Notify posts the event to the webhook. Errors are logged, not returned;
// the run outcome already happened and a dead webhook must not fail it.
func (s *Service) Notify(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	conf := s.snapshot()
	if !conf.wants(event.Type) {
		return
	}

	if err := conf.post(ctx, formatEvent(event)); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Int64("run", event.RunID).Msg("Webhook notification failed")
		return
	}
	log.Debug().Str("event", string(event.Type)).Int64("run", event.RunID).Msg("Webhook notification sent")
}

// post delivers one message as a Discord-compatible JSON payload.
func (c *settings) post(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func formatEvent(event Event) string {
	var lines []string
	switch event.Type {
	case EventRunFailed:
		lines = []string{
			"**Repair run failed**",
			formatLine("Run", fmt.Sprintf("%d (%s, %s)", event.RunID, event.Phase, event.Trigger)),
			formatLine("Error", event.ErrorMessage),
		}
	default:
		lines = []string{
			"**Repair run completed**",
			formatLine("Run", fmt.Sprintf("%d (%s, %s)", event.RunID, event.Phase, event.Trigger)),
			formatLine("Broken", fmt.Sprintf("%d", event.Counts.BrokenFound)),
			formatLine("Repaired", fmt.Sprintf("%d", event.Counts.Repaired)),
			formatLine("Skipped", fmt.Sprintf("%d", event.Counts.Skipped)),
			formatLine("Failed", fmt.Sprintf("%d", event.Counts.Failed)),
		}
	}

	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return truncateMessage(strings.Join(kept, "\n"), maxMessageLength)
}

func formatLine(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, strings.TrimSpace(value))
}

func truncateMessage(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
