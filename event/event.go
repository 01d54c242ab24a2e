// Package event defines the forum's activity log. Every successful
// mutating action appends one event; the log is read back through the
// list executor as the Events kind.
package event

import (
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/id"
	"github.com/quillboard/taskapi/thing"
)

// Event types appended by the action executor.
const (
	TypeUpserted   = "TypeUpserted"
	PageCreated    = "PageCreated"
	CommentCreated = "CommentCreated"
	PostDeleted    = "PostDeleted"
	VoteSet        = "VoteSet"
	NotfLevelSet   = "NotfLevelSet"
)

// New builds an activity-log event stamped now, with a fresh TypeID.
func New(eventType, actorRef, subjectRef string) *thing.Event {
	now := time.Now().UTC()
	return &thing.Event{
		Entity:     taskapi.Entity{CreatedAt: now, UpdatedAt: now},
		ID:         id.NewEventID().String(),
		Type:       eventType,
		ActorRef:   actorRef,
		SubjectRef: subjectRef,
		At:         now,
	}
}
