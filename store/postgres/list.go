package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quillboard/taskapi/list"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// ListThings scans one kind under the query's scopes, filters and sort
// order, resuming keyset-style after the cursor position.
func (s *Store) ListThings(ctx context.Context, q list.Query) ([]list.Item, error) {
	switch q.Kind {
	case thing.KindPages:
		return s.listPages(ctx, q)
	case thing.KindPosts:
		return s.listPosts(ctx, q)
	case thing.KindMembers:
		return s.listMembers(ctx, q)
	case thing.KindCategories:
		return s.listCategories(ctx, q)
	case thing.KindTags:
		return s.listTags(ctx, q)
	case thing.KindEvents:
		return s.listEvents(ctx, q)
	}
	return nil, fmt.Errorf("taskapi/postgres: list: unsupported kind %q", q.Kind)
}

// listQueryBuilder accumulates WHERE conditions with $n placeholders.
type listQueryBuilder struct {
	where []string
	args  []any
}

// arg binds v and returns its placeholder.
func (b *listQueryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *listQueryBuilder) cond(expr string) {
	b.where = append(b.where, expr)
}

// keyset appends the resume predicate for (col, refExpr) ordering.
func (b *listQueryBuilder) keyset(col, refExpr string, desc bool, key any, afterRef string) {
	cmp := ">"
	if desc {
		cmp = "<"
	}
	b.cond(fmt.Sprintf("(%s %s %s OR (%s = %s AND %s > %s))",
		col, cmp, b.arg(key), col, b.arg(key), refExpr, b.arg(afterRef)))
}

// build renders the full SELECT for one kind.
func (b *listQueryBuilder) build(cols, table, col, refExpr string, desc bool, limit int) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	query := "SELECT " + cols + " FROM " + table
	if len(b.where) > 0 {
		query += " WHERE " + strings.Join(b.where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, %s ASC", col, dir, refExpr)
	if limit > 0 {
		query += " LIMIT " + b.arg(limit)
	}
	return query
}

func (s *Store) listPages(ctx context.Context, q list.Query) ([]list.Item, error) {
	col, timeKeyed := "created_at", true
	switch q.Sort {
	case task.SortPopularFirst:
		col, timeKeyed = "num_likes", false
	case task.SortActivityRecentFirst:
		col = "last_activity_at"
	}
	refExpr := "('pageid:' || id::text)"

	var b listQueryBuilder
	if len(q.Look.InCategories) > 0 {
		ids := s.categoryIDs(ctx, q.Look.InCategories)
		if len(ids) == 0 {
			return nil, nil
		}
		b.cond("category_id = ANY(" + b.arg(ids) + ")")
	}
	if len(q.Look.WithTags) > 0 {
		b.cond("tags && " + b.arg(q.Look.WithTags))
	}
	if q.Filter.IsOpen != nil {
		b.cond("deleted = " + b.arg(!*q.Filter.IsOpen))
	}
	if q.Filter.IsDeleted != nil {
		b.cond("deleted = " + b.arg(*q.Filter.IsDeleted))
	}
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, timeKeyed)
		if err != nil {
			return nil, err
		}
		b.keyset(col, refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(pageCols, "taskapi_pages", col, refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list pages: %w", err)
	}
	pages, err := collect(rows, scanPage)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(pages))
	for _, p := range pages {
		key := timeKey(p.CreatedAt)
		switch q.Sort {
		case task.SortPopularFirst:
			key = countKey(p.NumLikes)
		case task.SortActivityRecentFirst:
			key = timeKey(p.LastActivityAt)
		}
		items = append(items, list.Item{Thing: p, Key: key})
	}
	return items, nil
}

func (s *Store) listPosts(ctx context.Context, q list.Query) ([]list.Item, error) {
	col, timeKeyed := "created_at", true
	if q.Sort == task.SortPopularFirst {
		col, timeKeyed = "num_likes", false
	}
	refExpr := "('postid:' || id::text)"

	var b listQueryBuilder
	if len(q.Look.InCategories) > 0 {
		ids := s.categoryIDs(ctx, q.Look.InCategories)
		if len(ids) == 0 {
			return nil, nil
		}
		b.cond("page_id IN (SELECT id FROM taskapi_pages WHERE category_id = ANY(" + b.arg(ids) + "))")
	}
	if q.Filter.IsDeleted != nil {
		b.cond("deleted = " + b.arg(*q.Filter.IsDeleted))
	}
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, timeKeyed)
		if err != nil {
			return nil, err
		}
		b.keyset(col, refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(postCols, "taskapi_posts", col, refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list posts: %w", err)
	}
	posts, err := collect(rows, scanPost)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(posts))
	for _, p := range posts {
		key := timeKey(p.CreatedAt)
		if q.Sort == task.SortPopularFirst {
			key = countKey(p.NumLikes)
		}
		items = append(items, list.Item{Thing: p, Key: key})
	}
	return items, nil
}

func (s *Store) listMembers(ctx context.Context, q list.Query) ([]list.Item, error) {
	refExpr := "('patid:' || id::text)"

	var b listQueryBuilder
	if q.ExactPrefix != "" {
		b.cond("username LIKE " + b.arg(likePrefix(q.ExactPrefix)))
	}
	if q.Filter.IsStaff != nil {
		b.cond("is_staff = " + b.arg(*q.Filter.IsStaff))
	}
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		b.keyset("created_at", refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(participantCols, "taskapi_participants", "created_at", refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list members: %w", err)
	}
	pats, err := collect(rows, scanParticipant)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(pats))
	for _, p := range pats {
		items = append(items, list.Item{Thing: p, Key: timeKey(p.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listCategories(ctx context.Context, q list.Query) ([]list.Item, error) {
	refExpr := "('catid:' || id::text)"

	var b listQueryBuilder
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		b.keyset("created_at", refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(categoryCols, "taskapi_categories", "created_at", refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list categories: %w", err)
	}
	cats, err := collect(rows, scanCategory)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(cats))
	for _, c := range cats {
		items = append(items, list.Item{Thing: c, Key: timeKey(c.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listTags(ctx context.Context, q list.Query) ([]list.Item, error) {
	refExpr := "('tagid:' || id::text)"

	var b listQueryBuilder
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		b.keyset("created_at", refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(tagCols, "taskapi_tags", "created_at", refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list tags: %w", err)
	}
	tags, err := collect(rows, scanTag)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(tags))
	for _, t := range tags {
		items = append(items, list.Item{Thing: t, Key: timeKey(t.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listEvents(ctx context.Context, q list.Query) ([]list.Item, error) {
	refExpr := "('eventid:' || id)"

	var b listQueryBuilder
	if q.After != nil {
		key, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		b.keyset("at", refExpr, descending(q.Sort), key, q.After.Ref)
	}

	query := b.build(eventCols, "taskapi_events", "at", refExpr, descending(q.Sort), q.Limit)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: list events: %w", err)
	}
	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, 0, len(events))
	for _, ev := range events {
		items = append(items, list.Item{Thing: ev, Key: timeKey(ev.At)})
	}
	return items, nil
}

// categoryIDs resolves category scope refs to ids. Unresolvable refs match
// nothing rather than failing the scan.
func (s *Store) categoryIDs(ctx context.Context, raws []string) []int64 {
	ids := make([]int64, 0, len(raws))
	for _, raw := range raws {
		r, err := ref.Parse(raw)
		if err != nil {
			continue
		}
		c, err := s.GetCategory(ctx, r)
		if err != nil {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// ── Ordering helpers ─────────────────────────────────────────────

func descending(s task.SortOrder) bool { return s != task.SortOldestFirst }

func timeKey(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
func countKey(n int) string      { return fmt.Sprintf("%020d", n) }

// cursorKeyArg converts a cursor sort key back into a comparable SQL
// argument: a time.Time for chronological keys, an int for count keys.
func cursorKeyArg(key string, timeKeyed bool) (any, error) {
	if timeKeyed {
		t, err := time.Parse(time.RFC3339Nano, key)
		if err != nil {
			return nil, fmt.Errorf("taskapi/postgres: bad cursor key %q: %w", key, err)
		}
		return t, nil
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: bad cursor key %q: %w", key, err)
	}
	return n, nil
}

// likePrefix escapes LIKE metacharacters in a user-supplied prefix.
func likePrefix(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, "%", `\%`)
	p = strings.ReplaceAll(p, "_", `\_`)
	return p + "%"
}
