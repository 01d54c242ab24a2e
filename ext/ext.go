package ext

import (
	"context"
	"time"

	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Task lifecycle hooks
// ──────────────────────────────────────────────────

// TaskStarted is called when the engine begins executing a decoded task.
type TaskStarted interface {
	OnTaskStarted(ctx context.Context, t *task.Task) error
}

// TaskCompleted is called after a task finishes with a result sequence.
// Per-item errors inside the slots do not make a task failed; only a
// request-level error does.
type TaskCompleted interface {
	OnTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) error
}

// TaskFailed is called when a task fails as a whole and returns a single
// request-level error instead of slots.
type TaskFailed interface {
	OnTaskFailed(ctx context.Context, t *task.Task, err error) error
}

// ActionApplied is called after one mutating action succeeds. ev is the
// activity-log event describing the mutation.
type ActionApplied interface {
	OnActionApplied(ctx context.Context, ev *thing.Event) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
