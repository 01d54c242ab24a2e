package sqlite

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
	return nil, fmt.Errorf("taskapi/sqlite: list: unsupported kind %q", q.Kind)
}

func (s *Store) listPages(ctx context.Context, q list.Query) ([]list.Item, error) {
	col, timeKeyed := "created_at", true
	switch q.Sort {
	case task.SortPopularFirst:
		col, timeKeyed = "num_likes", false
	case task.SortActivityRecentFirst:
		col = "last_activity_at"
	}

	var models []pageModel
	sel := s.sdb.NewSelect(&models)

	if len(q.Look.InCategories) > 0 {
		ids, err := s.categoryIDs(ctx, q.Look.InCategories)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		sel = sel.Where("category_id IN (" + joinIDs(ids) + ")")
	}
	if len(q.Look.WithTags) > 0 {
		exprs := make([]string, len(q.Look.WithTags))
		args := make([]any, len(q.Look.WithTags))
		for i, label := range q.Look.WithTags {
			exprs[i] = "tags LIKE ?"
			args[i] = `%"` + label + `"%`
		}
		sel = sel.Where("("+strings.Join(exprs, " OR ")+")", args...)
	}
	if q.Filter.IsOpen != nil {
		sel = sel.Where("deleted = ?", !*q.Filter.IsOpen)
	}
	if q.Filter.IsDeleted != nil {
		sel = sel.Where("deleted = ?", *q.Filter.IsDeleted)
	}

	refExpr := "'pageid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, timeKeyed)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr(col, refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr(col, refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list pages: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		p := fromPageModel(&models[i])
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

	var models []postModel
	sel := s.sdb.NewSelect(&models)

	if len(q.Look.InCategories) > 0 {
		ids, err := s.categoryIDs(ctx, q.Look.InCategories)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		sel = sel.Where("page_id IN (SELECT id FROM taskapi_pages WHERE category_id IN (" + joinIDs(ids) + "))")
	}
	if q.Filter.IsDeleted != nil {
		sel = sel.Where("deleted = ?", *q.Filter.IsDeleted)
	}

	refExpr := "'postid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, timeKeyed)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr(col, refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr(col, refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list posts: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		p := fromPostModel(&models[i])
		key := timeKey(p.CreatedAt)
		if q.Sort == task.SortPopularFirst {
			key = countKey(p.NumLikes)
		}
		items = append(items, list.Item{Thing: p, Key: key})
	}
	return items, nil
}

func (s *Store) listMembers(ctx context.Context, q list.Query) ([]list.Item, error) {
	var models []participantModel
	sel := s.sdb.NewSelect(&models)

	if q.ExactPrefix != "" {
		sel = sel.Where(`username LIKE ? ESCAPE '\'`, likePrefix(q.ExactPrefix))
	}
	if q.Filter.IsStaff != nil {
		sel = sel.Where("is_staff = ?", *q.Filter.IsStaff)
	}

	refExpr := "'patid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr("created_at", refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr("created_at", refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list members: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		p := fromParticipantModel(&models[i])
		items = append(items, list.Item{Thing: p, Key: timeKey(p.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listCategories(ctx context.Context, q list.Query) ([]list.Item, error) {
	var models []categoryModel
	sel := s.sdb.NewSelect(&models)

	refExpr := "'catid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr("created_at", refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr("created_at", refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list categories: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		c := fromCategoryModel(&models[i])
		items = append(items, list.Item{Thing: c, Key: timeKey(c.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listTags(ctx context.Context, q list.Query) ([]list.Item, error) {
	var models []tagModel
	sel := s.sdb.NewSelect(&models)

	refExpr := "'tagid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr("created_at", refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr("created_at", refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list tags: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		t := fromTagModel(&models[i])
		items = append(items, list.Item{Thing: t, Key: timeKey(t.CreatedAt)})
	}
	return items, nil
}

func (s *Store) listEvents(ctx context.Context, q list.Query) ([]list.Item, error) {
	var models []eventModel
	sel := s.sdb.NewSelect(&models)

	refExpr := "'eventid:' || id"
	if q.After != nil {
		keyArg, err := cursorKeyArg(q.After.Key, true)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(keysetExpr("at", refExpr, descending(q.Sort)), keyArg, keyArg, q.After.Ref)
	}
	sel = sel.OrderExpr(orderExpr("at", refExpr, descending(q.Sort)))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: list events: %w", err)
	}

	items := make([]list.Item, 0, len(models))
	for i := range models {
		ev := fromEventModel(&models[i])
		items = append(items, list.Item{Thing: ev, Key: timeKey(ev.At)})
	}
	return items, nil
}

// categoryIDs resolves category scope refs to ids. Unresolvable refs match
// nothing rather than failing the scan.
func (s *Store) categoryIDs(ctx context.Context, raws []string) ([]int64, error) {
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
	return ids, nil
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
			return nil, fmt.Errorf("taskapi/sqlite: bad cursor key %q: %w", key, err)
		}
		return t, nil
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: bad cursor key %q: %w", key, err)
	}
	return n, nil
}

// keysetExpr builds the resume predicate for (col, refExpr) ordering. The
// caller binds three args: key, key again, and the after-ref.
func keysetExpr(col, refExpr string, desc bool) string {
	cmp := ">"
	if desc {
		cmp = "<"
	}
	return fmt.Sprintf("(%s %s ? OR (%s = ? AND (%s) > ?))", col, cmp, col, refExpr)
}

// orderExpr renders "col DIR, ref ASC": the requested sort with the
// canonical-ref tie-break.
func orderExpr(col, refExpr string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, (%s) ASC", col, dir, refExpr)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// likePrefix escapes LIKE metacharacters in a user-supplied prefix.
func likePrefix(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, "%", `\%`)
	p = strings.ReplaceAll(p, "_", `\_`)
	return p + "%"
}
