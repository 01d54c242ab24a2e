package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillboard/taskapi/task"
)

// Logging returns middleware that logs task start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		logger.Info("task started",
			slog.String("task_kind", t.Discriminator()),
			slog.Int("items", itemCount(t)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("task failed",
				slog.String("task_kind", t.Discriminator()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.String("task_kind", t.Discriminator()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
