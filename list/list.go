// Package list implements the secondary-index listing executor. A list task
// becomes a bounded range scan over an index appropriate to its kind —
// username prefix, category membership, chronological — never a full scan:
// the decoder already rejected scopes with no supporting index. Results
// honor the requested sort order with a deterministic tie-break on the
// canonical ref, and a scroll cursor is issued when more results may exist.
package list

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Query is the scan plan handed to the store.
type Query struct {
	Kind        thing.Kind
	Look        task.LookWhere
	Filter      task.Filter
	Sort        task.SortOrder
	ExactPrefix string

	// Limit is the maximum number of items to return. The executor asks
	// for one more than it needs to learn whether a cursor is warranted.
	Limit int

	// After, when non-nil, resumes the scan strictly after this position
	// under (Sort, Ref) ordering.
	After *Position
}

// Item is one scanned element plus the sort key it held in the index,
// rendered as a string so the executor can build a resume position
// without knowing the kind's key type.
type Item struct {
	Thing thing.Thing
	Key   string
}

// Store is the index-scan surface the list executor needs. Implementations
// must return items ordered by q.Sort with ties broken by ascending
// canonical ref, must honor q.After exclusively, and must never scan more
// than a bounded index range.
type Store interface {
	ListThings(ctx context.Context, q Query) ([]Item, error)
}

// Result is the executor's output: projected items in index order, plus a
// continuation token when the scan stopped at the limit with more to come.
type Result struct {
	Items  []map[string]any
	Cursor string
}

// Executor runs list tasks.
type Executor struct {
	store  Store
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates a list executor.
func New(store Store, opts ...Option) *Executor {
	e := &Executor{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes t. A continuation task is rebuilt from its cursor first;
// fresh tasks arrive fully validated from the decoder.
func (e *Executor) Run(ctx context.Context, t *task.ListTask) (*Result, error) {
	q := Query{
		Kind:        t.What,
		Look:        t.Look,
		Filter:      t.Filter,
		Sort:        t.Sort,
		ExactPrefix: t.ExactPrefix,
		Limit:       t.Limit,
	}
	incl := t.Incl

	if t.ContinueAt != "" {
		c, err := DecodeCursor(t.ContinueAt)
		if err != nil {
			return nil, err
		}
		q.Kind = thing.Kind(c.Kind)
		q.Sort = task.SortOrder(c.Sort)
		q.ExactPrefix = c.ExactPrefix
		q.Look = c.Look
		q.Filter = c.Filter
		q.After = &Position{Key: c.After.Key, Ref: c.After.Ref}
		incl = c.Incl
		if incl == nil {
			incl = thing.DefaultInclusion(q.Kind)
		}
	}

	// One extra item tells us whether to issue a cursor.
	probe := q
	probe.Limit = q.Limit + 1
	items, err := e.store.ListThings(ctx, probe)
	if err != nil {
		e.logger.Debug("list: scan failed",
			slog.String("kind", string(q.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: list %s: %v", taskapi.ErrLookupFailed, q.Kind, err)
	}

	more := len(items) > q.Limit
	if more {
		items = items[:q.Limit]
	}

	res := &Result{Items: make([]map[string]any, len(items))}
	for i, it := range items {
		res.Items[i] = thing.Project(it.Thing, incl)
	}

	if more && len(items) > 0 {
		last := items[len(items)-1]
		c := Cursor{
			Kind:        string(q.Kind),
			Sort:        string(q.Sort),
			ExactPrefix: q.ExactPrefix,
			Look:        q.Look,
			Filter:      q.Filter,
			Incl:        incl,
			After:       Position{Key: last.Key, Ref: last.Thing.RefStr()},
		}
		token, err := c.Encode()
		if err != nil {
			return nil, err
		}
		res.Cursor = token
	}

	return res, nil
}
