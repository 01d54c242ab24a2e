package middleware

import (
	"context"

	"github.com/quillboard/taskapi/scope"
	"github.com/quillboard/taskapi/task"
)

// Scope returns middleware that restores the given site scope into the
// context. This ensures executors and stores see the same forge.Scope as
// the HTTP layer that accepted the request.
func Scope(siteID string) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		ctx = scope.Restore(ctx, siteID)
		return next(ctx)
	}
}
