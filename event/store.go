package event

import (
	"context"

	"github.com/quillboard/taskapi/thing"
)

// Store is the append surface the action executor writes to. Reading the
// log back goes through the list executor instead, so there is no read
// side here.
type Store interface {
	// AppendEvent persists one activity-log event.
	AppendEvent(ctx context.Context, ev *thing.Event) error
}
