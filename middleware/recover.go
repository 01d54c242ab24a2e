package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to internal request errors and logged with a stack
// trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("task handler panicked",
					slog.String("task_kind", t.Discriminator()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = taskapi.Internalf("panic in %s: %v", t.Discriminator(), r)
			}
		}()
		return next(ctx)
	}
}
