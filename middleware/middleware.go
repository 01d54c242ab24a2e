package middleware

import (
	"context"

	"github.com/quillboard/taskapi/task"
)

// Handler is the terminal function that executes the task.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the decoded task being executed, and the next handler
// to call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, t *task.Task, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, t, prev)
			}
		}
		return h(ctx)
	}
}

// itemCount reports how many input items the task carries: refs for a get,
// actions for a batch, sub-tasks for a multi, and one for list and search.
func itemCount(t *task.Task) int {
	switch {
	case t.Get != nil:
		return len(t.Get.Refs)
	case t.Do != nil:
		return len(t.Do.Actions)
	case t.Multi != nil:
		return len(t.Multi.Tasks)
	}
	return 1
}
