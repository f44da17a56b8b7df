// Package posthog sends product analytics of the viewer to PostHog.
package posthog

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	ph "github.com/posthog/posthog-go"
)

// Tracker enqueues analytics events. Events are batched and sent in the
// background by the PostHog client; Close flushes them.
type Tracker struct {
	client     ph.Client
	distinctID string
	logger     *slog.Logger
}

// NewTracker creates a tracker for the PostHog project key. All events of
// this process share one anonymous distinct id.
func NewTracker(key, host string, logger *slog.Logger) (*Tracker, error) {
	client, err := ph.NewWithConfig(key, ph.Config{Endpoint: host})
	if err != nil {
		return nil, fmt.Errorf("create posthog client: %w", err)
	}
	return newTracker(client, "viewer-"+uuid.NewString(), logger), nil
}

func newTracker(client ph.Client, distinctID string, logger *slog.Logger) *Tracker {
	return &Tracker{client: client, distinctID: distinctID, logger: logger}
}

// Track records an event. Failures are logged, never returned.
func (t *Tracker) Track(event string, props map[string]any) {
	err := t.client.Enqueue(ph.Capture{
		DistinctId: t.distinctID,
		Event:      event,
		Properties: props,
	})
	if err != nil {
		t.logger.Warn("analytics event dropped", "event", event, "error", err)
	}
}

// Close flushes pending events.
func (t *Tracker) Close() error {
	return t.client.Close()
}
