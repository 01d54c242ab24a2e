package postgres

import (
	"context"
	"fmt"

	"github.com/quillboard/taskapi/thing"
)

// AppendEvent appends one activity-log event.
func (s *Store) AppendEvent(ctx context.Context, ev *thing.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO taskapi_events (id, event_type, actor_ref, subject_ref, at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.Type, ev.ActorRef, ev.SubjectRef, ev.At, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("taskapi/postgres: event %s already recorded", ev.ID)
		}
		return fmt.Errorf("taskapi/postgres: append event: %w", err)
	}
	return nil
}
