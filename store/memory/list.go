package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/list"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// ──────────────────────────────────────────────────
// list.Store — index scans
// ──────────────────────────────────────────────────

// ListThings scans one kind under the query's scopes, filters and sort
// order. Sort keys are zero-padded decimals so lexical comparison agrees
// with the numeric scan order a real index would use.
func (m *Store) ListThings(_ context.Context, q list.Query) ([]list.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, taskapi.ErrStoreClosed
	}

	var items []list.Item
	switch q.Kind {
	case thing.KindPages:
		items = m.listPages(q)
	case thing.KindPosts:
		items = m.listPosts(q)
	case thing.KindMembers:
		items = m.listMembers(q)
	case thing.KindCategories:
		items = m.listCategories(q)
	case thing.KindTags:
		items = m.listTags(q)
	case thing.KindEvents:
		items = m.listEvents(q)
	default:
		return nil, fmt.Errorf("list: unsupported kind %q", q.Kind)
	}

	sortItems(items, q.Sort)
	items = cutAfter(items, q.Sort, q.After)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (m *Store) listPages(q list.Query) []list.Item {
	catIDs := m.resolveCategoryScope(q.Look.InCategories)
	key := func(p *thing.Page) string {
		switch q.Sort {
		case task.SortPopularFirst:
			return countKey(p.NumLikes)
		case task.SortActivityRecentFirst:
			return timeKey(p.LastActivityAt)
		default:
			return timeKey(p.CreatedAt)
		}
	}

	var items []list.Item
	for _, p := range m.pages {
		if catIDs != nil && !catIDs[p.CategoryID] {
			continue
		}
		if len(q.Look.WithTags) > 0 && !hasAnyTag(p.Tags, q.Look.WithTags) {
			continue
		}
		if !matchBool(q.Filter.IsOpen, !p.Deleted) {
			continue
		}
		if !matchBool(q.Filter.IsDeleted, p.Deleted) {
			continue
		}
		cp := *p
		items = append(items, list.Item{Thing: &cp, Key: key(p)})
	}
	return items
}

func (m *Store) listPosts(q list.Query) []list.Item {
	catIDs := m.resolveCategoryScope(q.Look.InCategories)
	key := func(p *thing.Post) string {
		if q.Sort == task.SortPopularFirst {
			return countKey(p.NumLikes)
		}
		return timeKey(p.CreatedAt)
	}

	var items []list.Item
	for _, p := range m.posts {
		if catIDs != nil {
			page, ok := m.pages[p.PageID]
			if !ok || !catIDs[page.CategoryID] {
				continue
			}
		}
		if !matchBool(q.Filter.IsDeleted, p.Deleted) {
			continue
		}
		cp := *p
		items = append(items, list.Item{Thing: &cp, Key: key(p)})
	}
	return items
}

func (m *Store) listMembers(q list.Query) []list.Item {
	var items []list.Item
	for _, p := range m.pats {
		if q.ExactPrefix != "" && !strings.HasPrefix(p.Username, q.ExactPrefix) {
			continue
		}
		if !matchBool(q.Filter.IsStaff, p.IsStaff) {
			continue
		}
		cp := *p
		items = append(items, list.Item{Thing: &cp, Key: timeKey(p.CreatedAt)})
	}
	return items
}

func (m *Store) listCategories(_ list.Query) []list.Item {
	var items []list.Item
	for _, c := range m.cats {
		cp := *c
		items = append(items, list.Item{Thing: &cp, Key: timeKey(c.CreatedAt)})
	}
	return items
}

func (m *Store) listTags(_ list.Query) []list.Item {
	var items []list.Item
	for _, t := range m.tags {
		cp := *t
		items = append(items, list.Item{Thing: &cp, Key: timeKey(t.CreatedAt)})
	}
	return items
}

func (m *Store) listEvents(_ list.Query) []list.Item {
	var items []list.Item
	for _, ev := range m.events {
		cp := *ev
		items = append(items, list.Item{Thing: &cp, Key: timeKey(ev.At)})
	}
	return items
}

// resolveCategoryScope maps category refs to an id set, or nil when the
// scope is absent. Unresolvable refs simply match nothing.
func (m *Store) resolveCategoryScope(raws []string) map[int64]bool {
	if len(raws) == 0 {
		return nil
	}
	ids := make(map[int64]bool, len(raws))
	for _, raw := range raws {
		r, err := ref.Parse(raw)
		if err != nil {
			continue
		}
		if c, ok := m.catLocked(r); ok {
			ids[c.ID] = true
		}
	}
	return ids
}

// ──────────────────────────────────────────────────
// Ordering helpers
// ──────────────────────────────────────────────────

func timeKey(t time.Time) string { return fmt.Sprintf("%020d", t.UnixNano()) }
func countKey(n int) string      { return fmt.Sprintf("%020d", n) }

func descending(s task.SortOrder) bool { return s != task.SortOldestFirst }

func sortItems(items []list.Item, s task.SortOrder) {
	desc := descending(s)
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Key != b.Key {
			if desc {
				return a.Key > b.Key
			}
			return a.Key < b.Key
		}
		return a.Thing.RefStr() < b.Thing.RefStr()
	})
}

// cutAfter drops everything up to and including the resume position. When
// the exact position is gone (the item was deleted between pages), the scan
// resumes at the first item strictly past it instead of restarting.
func cutAfter(items []list.Item, s task.SortOrder, after *list.Position) []list.Item {
	if after == nil {
		return items
	}
	for i, it := range items {
		if it.Key == after.Key && it.Thing.RefStr() == after.Ref {
			return items[i+1:]
		}
	}
	desc := descending(s)
	for i, it := range items {
		if pastPosition(it, after, desc) {
			return items[i:]
		}
	}
	return nil
}

func pastPosition(it list.Item, after *list.Position, desc bool) bool {
	if it.Key != after.Key {
		if desc {
			return it.Key < after.Key
		}
		return it.Key > after.Key
	}
	return it.Thing.RefStr() > after.Ref
}

func matchBool(want *bool, got bool) bool {
	return want == nil || *want == got
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}
