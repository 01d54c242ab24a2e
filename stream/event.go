// Package stream provides a real-time broker for forum activity and task
// lifecycle events. It bridges the ext.Extension system to connected
// clients via topic-based pub/sub.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of streamed event.
type EventType string

const (
	// EventActionApplied is published after every successful mutating
	// action, carrying the activity-log entry.
	EventActionApplied EventType = "action.applied"

	// Task events.
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the streamed event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the entity channel this event was published on.
	Topic string `json:"topic"`

	// Actor is the ref of the participant whose action produced the
	// event, when there is one. Subscribers can mute refs to suppress
	// echoes of their own actions.
	Actor string `json:"actor,omitempty"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// ActionEventData is the payload for action-applied events. It mirrors
// the activity-log entry the action appended.
type ActionEventData struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	ActorRef   string `json:"actor_ref"`
	SubjectRef string `json:"subject_ref"`
	At         string `json:"at"`
}

// TaskEventData is the payload for task lifecycle events.
type TaskEventData struct {
	TaskKind  string `json:"task_kind"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}
