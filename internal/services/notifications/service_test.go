// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
)

type capture struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capture) add(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies = append(c.bodies, body)
}

func (c *capture) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...)
}

func webhookServer(t *testing.T, cap *capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		cap.add(string(body))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func notifyConfig(url string) *domain.Config {
	return &domain.Config{
		Notifications: domain.NotificationsConfig{
			WebhookURL:  url,
			OnCompleted: true,
			OnFailed:    true,
		},
	}
}

func TestNotifyPostsRunCompleted(t *testing.T) {
	cap := &capture{}
	srv := webhookServer(t, cap)
	svc := NewService(notifyConfig(srv.URL))

	svc.Notify(context.Background(), Event{
		Type:    EventRunCompleted,
		RunID:   7,
		Phase:   models.RunPhaseFull,
		Trigger: models.RunTriggerManual,
		Counts:  models.RunCounts{BrokenFound: 3, Repaired: 2, Failed: 1},
	})

	bodies := cap.all()
	require.Len(t, bodies, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &payload))
	content := payload["content"]
	assert.Contains(t, content, "Repair run completed")
	assert.Contains(t, content, "Run: 7 (full, manual)")
	assert.Contains(t, content, "Broken: 3")
	assert.Contains(t, content, "Repaired: 2")
	assert.Contains(t, content, "Failed: 1")
}

func TestNotifyPostsRunFailed(t *testing.T) {
	cap := &capture{}
	srv := webhookServer(t, cap)
	svc := NewService(notifyConfig(srv.URL))

	svc.Notify(context.Background(), Event{
		Type:         EventRunFailed,
		RunID:        9,
		Phase:        models.RunPhaseFull,
		Trigger:      models.RunTriggerAuto,
		ErrorMessage: "library scan: mount unavailable",
	})

	bodies := cap.all()
	require.Len(t, bodies, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &payload))
	assert.Contains(t, payload["content"], "Repair run failed")
	assert.Contains(t, payload["content"], "Error: library scan: mount unavailable")
}

func TestNotifyDisabledWithoutWebhook(t *testing.T) {
	cap := &capture{}
	srv := webhookServer(t, cap)

	cfg := notifyConfig(srv.URL)
	cfg.Notifications.WebhookURL = ""
	svc := NewService(cfg)

	svc.Notify(context.Background(), Event{Type: EventRunCompleted, RunID: 1})
	assert.Empty(t, cap.all())
}

func TestNotifyHonorsEventToggles(t *testing.T) {
	cap := &capture{}
	srv := webhookServer(t, cap)

	cfg := notifyConfig(srv.URL)
	cfg.Notifications.OnCompleted = false
	svc := NewService(cfg)

	svc.Notify(context.Background(), Event{Type: EventRunCompleted, RunID: 1})
	assert.Empty(t, cap.all())

	svc.Notify(context.Background(), Event{Type: EventRunFailed, RunID: 1, ErrorMessage: "boom"})
	assert.Len(t, cap.all(), 1)
}

func TestNotifyNilServiceIsNoOp(t *testing.T) {
	var svc *Service
	svc.Notify(context.Background(), Event{Type: EventRunCompleted})
}

func TestFormatEventTruncatesLongErrors(t *testing.T) {
	content := formatEvent(Event{
		Type:         EventRunFailed,
		RunID:        1,
		Phase:        models.RunPhaseFull,
		Trigger:      models.RunTriggerManual,
		ErrorMessage: strings.Repeat("x", 2*maxMessageLength),
	})
	assert.LessOrEqual(t, len([]rune(content)), maxMessageLength)
	assert.True(t, strings.HasSuffix(content, "…"))
}
