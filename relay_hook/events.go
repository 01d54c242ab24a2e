package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Task lifecycle event types. Each constant maps to one ext lifecycle
// hook and is used as the event.Event.Type when sending via Relay.
const (
	EventTaskStarted   = "taskapi.task.started"
	EventTaskCompleted = "taskapi.task.completed"
	EventTaskFailed    = "taskapi.task.failed"
	EventActionApplied = "taskapi.action.applied"
)

// AllDefinitions returns webhook definitions for all task lifecycle
// event types. Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Task events ─────────────────────────────────
		{
			Name:        EventTaskStarted,
			Description: "Fired when a task begins execution.",
			Group:       "tasks",
			Version:     "2026-01-01",
		},
		{
			Name:        EventTaskCompleted,
			Description: "Fired when a task finishes successfully.",
			Group:       "tasks",
			Version:     "2026-01-01",
		},
		{
			Name:        EventTaskFailed,
			Description: "Fired when a task fails before producing a response.",
			Group:       "tasks",
			Version:     "2026-01-01",
		},
		// ── Action events ───────────────────────────────
		{
			Name:        EventActionApplied,
			Description: "Fired when an action mutates a thing: a page is created, a vote is set, a post is deleted.",
			Group:       "actions",
			Version:     "2026-01-01",
		},
	}
}

// RegisterAll registers all task webhook event types in the Relay catalog.
// Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
