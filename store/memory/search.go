package memory

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/search"
	"github.com/quillboard/taskapi/thing"
)

var _ search.Backend = (*SearchBackend)(nil)

// SearchBackend is an in-process substring index over a memory Store.
// Good enough for tests and development; production deployments use a
// real full-text index.
type SearchBackend struct {
	store *Store
}

// NewSearch returns a search backend reading directly from s.
func NewSearch(s *Store) *SearchBackend {
	return &SearchBackend{store: s}
}

// Search matches the freetext case-insensitively as a substring. Score is
// the number of occurrences, with title matches counted double for pages.
func (b *SearchBackend) Search(_ context.Context, q search.Query) ([]search.Hit, error) {
	m := b.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}

	needle := strings.ToLower(strings.TrimSpace(q.Freetext))
	if needle == "" {
		return nil, nil
	}

	var hits []search.Hit
	switch q.Kind {
	case thing.KindPages:
		hits = m.searchPages(needle, q)
	case thing.KindPosts:
		hits = m.searchPosts(needle, q)
	}

	// Rank best-first before windowing. The order must be total: offset
	// windowing happens here, so a score-only rank would let equal-score
	// hits land in different windows on the next page.
	rank(hits)
	if q.Offset >= len(hits) {
		return nil, nil
	}
	hits = hits[q.Offset:]
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Ping reports store health.
func (b *SearchBackend) Ping(ctx context.Context) error { return b.store.Ping(ctx) }

// Close is a no-op; the backend owns no resources of its own.
func (b *SearchBackend) Close() error { return nil }

func (m *Store) searchPages(needle string, q search.Query) []search.Hit {
	catIDs := m.resolveCategoryScope(q.Look.InCategories)
	titleOnly := q.Look.TitleText && !q.Look.PageText

	var hits []search.Hit
	for _, p := range m.pages {
		if p.Deleted {
			continue
		}
		if catIDs != nil && !catIDs[p.CategoryID] {
			continue
		}
		if len(q.Look.WithTags) > 0 && !hasAnyTag(p.Tags, q.Look.WithTags) {
			continue
		}

		titleN := strings.Count(strings.ToLower(p.Title), needle)
		bodyN := 0
		if !titleOnly {
			bodyN = strings.Count(strings.ToLower(m.pageBodyLocked(p.ID)), needle)
		}
		if titleN+bodyN == 0 {
			continue
		}

		cp := *p
		hits = append(hits, search.Hit{
			Thing:      &cp,
			Score:      float64(2*titleN + bodyN),
			Highlights: highlights(needle, p.Title, m.pageBodyLocked(p.ID)),
		})
	}
	return hits
}

func (m *Store) searchPosts(needle string, q search.Query) []search.Hit {
	catIDs := m.resolveCategoryScope(q.Look.InCategories)

	var hits []search.Hit
	for _, p := range m.posts {
		if p.Deleted {
			continue
		}
		if catIDs != nil {
			page, ok := m.pages[p.PageID]
			if !ok || !catIDs[page.CategoryID] {
				continue
			}
		}
		n := strings.Count(strings.ToLower(p.BodyText), needle)
		if n == 0 {
			continue
		}
		cp := *p
		hits = append(hits, search.Hit{
			Thing:      &cp,
			Score:      float64(n),
			Highlights: highlights(needle, p.BodyText),
		})
	}
	return hits
}

// pageBodyLocked returns the text of the page's body post (nr 1).
func (m *Store) pageBodyLocked(pageID int64) string {
	for _, p := range m.posts {
		if p.PageID == pageID && p.Nr == 1 {
			return p.BodyText
		}
	}
	return ""
}

// rank orders hits best-first with the canonical ref as tie-break, giving
// every query one total order regardless of map iteration.
func rank(hits []search.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Thing.RefStr() < hits[j].Thing.RefStr()
	})
}

// highlights returns one marked fragment per source text that contains the
// needle, trimmed to a window around the first occurrence.
func highlights(needle string, texts ...string) []string {
	const window = 60
	var frags []string
	for _, text := range texts {
		i := strings.Index(strings.ToLower(text), needle)
		if i < 0 {
			continue
		}
		start := i - window/2
		if start < 0 {
			start = 0
		}
		end := i + len(needle) + window/2
		if end > len(text) {
			end = len(text)
		}
		// Snap the window to rune boundaries so multibyte text never gets
		// sliced mid-rune.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		frag := text[start:i] + "<mark>" + text[i:i+len(needle)] + "</mark>" + text[i+len(needle):end]
		frags = append(frags, frag)
	}
	return frags
}
