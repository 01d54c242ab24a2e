// Package get implements the exact-key lookup executor: each reference in a
// get task resolves independently to at most one thing. Per-item failures
// (bad ref, missing thing, downstream fault) occupy their own result slot
// and never abort sibling lookups.
package get

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Store is the exact-lookup surface the get executor needs. Each method is
// a primary-key-equivalent fetch: at most one result per resolved ref.
// "Not found" is reported as taskapi.ErrNotFound; anything else is a
// downstream fault.
type Store interface {
	GetPage(ctx context.Context, r ref.Ref) (*thing.Page, error)
	GetPost(ctx context.Context, r ref.Ref) (*thing.Post, error)
	GetParticipant(ctx context.Context, r ref.Ref) (*thing.Participant, error)
	GetCategory(ctx context.Context, r ref.Ref) (*thing.Category, error)
	GetTag(ctx context.Context, r ref.Ref) (*thing.Tag, error)
	GetEvent(ctx context.Context, r ref.Ref) (*thing.Event, error)
}

// legalNamespaces lists which reference namespaces can address each kind.
// A ref in the wrong namespace for the requested kind is a per-item
// InvalidRef, same as a lexically malformed one.
var legalNamespaces = map[thing.Kind]map[ref.Namespace]bool{
	thing.KindPages: {
		ref.NsPageID: true, ref.NsRefID: true, ref.NsExtID: true, ref.NsEmbURL: true,
	},
	thing.KindPosts: {
		ref.NsPostID: true,
	},
	thing.KindMembers: {
		ref.NsPatID: true, ref.NsUsername: true, ref.NsRefID: true,
		ref.NsExtID: true, ref.NsSSOID: true,
	},
	thing.KindCategories: {
		ref.NsCatID: true, ref.NsRefID: true, ref.NsExtID: true,
	},
	thing.KindTags: {
		ref.NsTagID: true,
	},
	thing.KindEvents: {
		ref.NsEventID: true,
	},
}

// Executor resolves and fetches get tasks.
type Executor struct {
	store       Store
	concurrency int
	logger      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency bounds how many refs are looked up at once.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates a get executor.
func New(store Store, opts ...Option) *Executor {
	e := &Executor{
		store:       store,
		concurrency: 8,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes t and returns exactly len(t.Refs) slots, slot i
// corresponding to t.Refs[i]. Lookups run concurrently; slots are merged by
// original position, never by completion order.
func (e *Executor) Run(ctx context.Context, t *task.GetTask) []taskapi.ResultSlot {
	slots := make([]taskapi.ResultSlot, len(t.Refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, raw := range t.Refs {
		g.Go(func() error {
			slots[i] = e.lookupOne(gctx, t, raw)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-item errors live in the slots

	return slots
}

// lookupOne resolves one raw ref and fetches the addressed thing.
func (e *Executor) lookupOne(ctx context.Context, t *task.GetTask, raw string) taskapi.ResultSlot {
	if err := ctx.Err(); err != nil {
		return taskapi.ErrSlotFrom(err)
	}

	r, err := ref.Parse(raw)
	if err != nil {
		return taskapi.ErrSlotFrom(err)
	}
	if !legalNamespaces[t.What][r.Namespace] {
		return taskapi.ErrSlotFrom(fmt.Errorf(
			"%w: namespace %q cannot address %s", taskapi.ErrInvalidRef, r.Namespace, t.What))
	}

	found, err := e.fetch(ctx, t.What, r)
	if err != nil {
		if ctx.Err() != nil {
			return taskapi.ErrSlotFrom(ctx.Err())
		}
		e.logSlotError(raw, err)
		return taskapi.ErrSlotFrom(err)
	}
	return taskapi.OkThing(thing.Project(found, t.Incl))
}

func (e *Executor) fetch(ctx context.Context, kind thing.Kind, r ref.Ref) (thing.Thing, error) {
	switch kind {
	case thing.KindPages:
		return orNil(e.store.GetPage(ctx, r))
	case thing.KindPosts:
		return orNil(e.store.GetPost(ctx, r))
	case thing.KindMembers:
		return orNil(e.store.GetParticipant(ctx, r))
	case thing.KindCategories:
		return orNil(e.store.GetCategory(ctx, r))
	case thing.KindTags:
		return orNil(e.store.GetTag(ctx, r))
	case thing.KindEvents:
		return orNil(e.store.GetEvent(ctx, r))
	}
	return nil, fmt.Errorf("%w: get does not support kind %s", taskapi.ErrLookupFailed, kind)
}

func (e *Executor) logSlotError(raw string, err error) {
	e.logger.Debug("get: lookup failed",
		slog.String("ref", raw),
		slog.String("error", err.Error()),
	)
}

// orNil adapts a typed store result to the Thing interface without turning
// a nil pointer into a non-nil interface.
func orNil[T thing.Thing](v T, err error) (thing.Thing, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
