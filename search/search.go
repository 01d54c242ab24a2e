// Package search implements the free-text search executor. It is a thin
// adapter: it owns query construction and result post-processing — mapping
// scores to a stable order, carrying highlight fragments — while matching
// and ranking belong to the external index behind the Backend interface.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Query is the backend-facing form of a search task.
type Query struct {
	Freetext string
	Kind     thing.Kind
	Look     task.LookWhere

	// Offset and Limit window the ranked result list; the executor asks
	// for one extra row to decide whether to issue a cursor.
	Offset int
	Limit  int
}

// Hit is one ranked match. Highlights are text fragments with the index's
// match markers left in (e.g. "an <mark>example</mark> sentence").
type Hit struct {
	Thing      thing.Thing
	Score      float64
	Highlights []string
}

// Backend is the external full-text/faceted index. Implementations return
// hits ranked best-first under a total deterministic order: equal scores
// must break ties on a stable key (the canonical ref). Offset windowing
// happens inside the backend, so any nondeterminism among ties shuffles
// hits across scroll pages and the executor cannot repair it after the
// window is cut.
type Backend interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
	Ping(ctx context.Context) error
	Close() error
}

// Result mirrors the list executor's shape so callers can treat list and
// search responses uniformly.
type Result struct {
	Items  []map[string]any
	Cursor string
}

// Executor runs search tasks.
type Executor struct {
	backend Backend
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates a search executor.
func New(backend Backend, opts ...Option) *Executor {
	e := &Executor{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes t against the external index.
func (e *Executor) Run(ctx context.Context, t *task.SearchTask) (*Result, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: no search backend configured", taskapi.ErrLookupFailed)
	}

	q := Query{
		Freetext: t.Freetext,
		Kind:     t.What,
		Look:     t.Look,
		Limit:    t.Limit,
	}
	incl := t.Incl

	if t.ContinueAt != "" {
		c, err := decodeCursor(t.ContinueAt)
		if err != nil {
			return nil, err
		}
		q.Freetext = c.Freetext
		q.Kind = thing.Kind(c.Kind)
		q.Look = c.Look
		q.Offset = c.Offset
		incl = c.Incl
		if incl == nil {
			incl = thing.DefaultInclusion(q.Kind)
		}
	}

	probe := q
	probe.Limit = q.Limit + 1
	hits, err := e.backend.Search(ctx, probe)
	if err != nil {
		e.logger.Debug("search: backend query failed",
			slog.String("kind", string(q.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: search %s: %v", taskapi.ErrLookupFailed, q.Kind, err)
	}

	// Score-to-order mapping with a deterministic tie-break, so equal
	// scores do not reshuffle between identical queries.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Thing.RefStr() < hits[j].Thing.RefStr()
	})

	more := len(hits) > q.Limit
	if more {
		hits = hits[:q.Limit]
	}

	res := &Result{Items: make([]map[string]any, len(hits))}
	for i, h := range hits {
		item := thing.Project(h.Thing, incl)
		item["score"] = h.Score
		if len(h.Highlights) > 0 {
			item["snippets"] = h.Highlights
		}
		res.Items[i] = item
	}

	if more {
		c := cursor{
			Freetext: q.Freetext,
			Kind:     string(q.Kind),
			Look:     q.Look,
			Incl:     incl,
			Offset:   q.Offset + len(hits),
		}
		token, err := c.encode()
		if err != nil {
			return nil, err
		}
		res.Cursor = token
	}

	return res, nil
}
