package redisearch

import (
	"context"
	"log/slog"

	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/get"
	"github.com/quillboard/taskapi/list"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Compile-time interface checks for the sync extension.
var (
	_ ext.Extension     = (*Sync)(nil)
	_ ext.ActionApplied = (*Sync)(nil)
)

// Sync keeps the search index in step with the store. Registered as an
// engine extension, it reacts to activity-log events by re-mirroring the
// touched page or post. Index writes are best-effort: a failed mirror is
// logged and retried implicitly the next time the document changes.
type Sync struct {
	backend *Backend
	store   syncStore
	logger  *slog.Logger
}

// syncStore is the read surface Sync needs to load changed entities. Both
// get.Store and the composite stores satisfy it.
type syncStore interface {
	get.Store
	list.Store
}

// NewSync creates the index-sync extension.
func NewSync(backend *Backend, store syncStore, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{backend: backend, store: store, logger: logger}
}

// Name implements ext.Extension.
func (s *Sync) Name() string { return "redisearch-sync" }

// OnActionApplied mirrors the event's subject into the index.
func (s *Sync) OnActionApplied(ctx context.Context, ev *thing.Event) error {
	r, err := ref.Parse(ev.SubjectRef)
	if err != nil {
		return nil // subject is not addressable, nothing to mirror
	}

	switch r.Namespace {
	case ref.NsPageID:
		s.mirrorPage(ctx, r)
	case ref.NsPostID:
		s.mirrorPost(ctx, r)
	}
	return nil
}

func (s *Sync) mirrorPage(ctx context.Context, r ref.Ref) {
	page, err := s.store.GetPage(ctx, r)
	if err != nil {
		s.logger.Warn("redisearch-sync: load page", slog.String("ref", r.String()), slog.String("error", err.Error()))
		return
	}
	body := s.pageBody(ctx, page.ID)
	var cat *thing.Category
	if page.CategoryID != 0 {
		cat, _ = s.store.GetCategory(ctx, ref.Ref{Namespace: ref.NsCatID, Num: page.CategoryID}) //nolint:errcheck // index without category scope aliases
	}
	if err := s.backend.IndexPage(ctx, page, body, cat); err != nil {
		s.logger.Warn("redisearch-sync: index page", slog.Int64("id", page.ID), slog.String("error", err.Error()))
	}
}

func (s *Sync) mirrorPost(ctx context.Context, r ref.Ref) {
	post, err := s.store.GetPost(ctx, r)
	if err != nil {
		s.logger.Warn("redisearch-sync: load post", slog.String("ref", r.String()), slog.String("error", err.Error()))
		return
	}
	if err := s.backend.IndexPost(ctx, post); err != nil {
		s.logger.Warn("redisearch-sync: index post", slog.Int64("id", post.ID), slog.String("error", err.Error()))
	}
	// The body post also feeds the page document.
	if post.Nr == 1 {
		s.mirrorPage(ctx, ref.Ref{Namespace: ref.NsPageID, Num: post.PageID})
	}
}

// pageBody loads the page's body post text for the page document. An
// empty body only costs recall on body-text matches.
func (s *Sync) pageBody(ctx context.Context, pageID int64) string {
	items, err := s.store.ListThings(ctx, list.Query{
		Kind: thing.KindPosts,
		Sort: task.SortOldestFirst,
	})
	if err != nil {
		return ""
	}
	for _, it := range items {
		if p, ok := it.Thing.(*thing.Post); ok && p.PageID == pageID && p.Nr == 1 {
			return p.BodyText
		}
	}
	return ""
}
