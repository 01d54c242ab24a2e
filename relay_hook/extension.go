package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/scope"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Extension)(nil)
	_ ext.TaskStarted   = (*Extension)(nil)
	_ ext.TaskCompleted = (*Extension)(nil)
	_ ext.TaskFailed    = (*Extension)(nil)
	_ ext.ActionApplied = (*Extension)(nil)
)

// Extension bridges task lifecycle events to Relay for webhook delivery.
// Each lifecycle hook emits a typed event via [relay.Relay.Send]. The site
// the task executed under becomes the event's tenant, so webhook
// subscriptions can be scoped per site.
type Extension struct {
	relay    *relay.Relay
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
}

// New creates an Extension that emits task lifecycle events through the
// provided Relay instance.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Task lifecycle hooks ────────────────────────────

// OnTaskStarted implements ext.TaskStarted.
func (h *Extension) OnTaskStarted(ctx context.Context, t *task.Task) error {
	return h.send(ctx, EventTaskStarted, newTaskPayload(ctx, t))
}

// OnTaskCompleted implements ext.TaskCompleted.
func (h *Extension) OnTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) error {
	return h.send(ctx, EventTaskCompleted, &taskCompletedPayload{
		taskPayload: *newTaskPayload(ctx, t),
		ElapsedMs:   elapsed.Milliseconds(),
	})
}

// OnTaskFailed implements ext.TaskFailed.
func (h *Extension) OnTaskFailed(ctx context.Context, t *task.Task, taskErr error) error {
	return h.send(ctx, EventTaskFailed, &taskFailedPayload{
		taskPayload: *newTaskPayload(ctx, t),
		Error:       taskErr.Error(),
	})
}

// ── Action lifecycle hooks ──────────────────────────

// OnActionApplied implements ext.ActionApplied.
func (h *Extension) OnActionApplied(ctx context.Context, ev *thing.Event) error {
	return h.send(ctx, EventActionApplied, &actionPayload{
		EventID:    ev.ID,
		EventType:  ev.Type,
		ActorRef:   ev.ActorRef,
		SubjectRef: ev.SubjectRef,
		At:         ev.At.Format(time.RFC3339),
		SiteID:     scope.Capture(ctx),
	})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled. The
// tenant is the site captured from the context, so per-site webhook
// subscriptions see only their own events.
func (h *Extension) send(ctx context.Context, eventType string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: scope.Capture(ctx),
		Data:     data,
	})
}

// ── Default payload types ───────────────────────────

type taskPayload struct {
	Kind   string `json:"kind"`
	SiteID string `json:"site_id,omitempty"`
}

func newTaskPayload(ctx context.Context, t *task.Task) *taskPayload {
	return &taskPayload{
		Kind:   t.Discriminator(),
		SiteID: scope.Capture(ctx),
	}
}

type taskCompletedPayload struct {
	taskPayload
	ElapsedMs int64 `json:"elapsed_ms"`
}

type taskFailedPayload struct {
	taskPayload
	Error string `json:"error"`
}

type actionPayload struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	ActorRef   string `json:"actor_ref"`
	SubjectRef string `json:"subject_ref"`
	At         string `json:"at"`
	SiteID     string `json:"site_id,omitempty"`
}
