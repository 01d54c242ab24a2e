package sqlite

import (
	"context"
	"fmt"

	"github.com/quillboard/taskapi/thing"
)

// AppendEvent appends one activity-log event.
func (s *Store) AppendEvent(ctx context.Context, ev *thing.Event) error {
	m := toEventModel(ev)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("taskapi/sqlite: event %s already recorded", ev.ID)
		}
		return fmt.Errorf("taskapi/sqlite: append event: %w", err)
	}
	return nil
}
