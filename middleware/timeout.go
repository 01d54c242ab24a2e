package middleware

import (
	"context"
	"time"

	"github.com/quillboard/taskapi/task"
)

// Timeout returns middleware that enforces a per-request execution deadline.
// When d is zero the middleware is a pass-through. When the deadline is
// exceeded the context is cancelled; executors turn that into timeout
// slots for the items still pending.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
