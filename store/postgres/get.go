package postgres

import (
	"context"
	"fmt"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/thing"
)

// GetPage resolves a page by any page-addressing namespace.
func (s *Store) GetPage(ctx context.Context, r ref.Ref) (*thing.Page, error) {
	col, arg, ok := pageKey(r)
	if !ok {
		return nil, taskapi.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+pageCols+` FROM taskapi_pages WHERE `+col+` = $1`, arg)
	p, err := scanPage(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get page: %w", err)
	}
	return p, nil
}

// GetPost resolves a post by its internal id.
func (s *Store) GetPost(ctx context.Context, r ref.Ref) (*thing.Post, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postCols+` FROM taskapi_posts WHERE id = $1`, r.Num)
	p, err := scanPost(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get post: %w", err)
	}
	return p, nil
}

// GetParticipant resolves a member by any member-addressing namespace.
func (s *Store) GetParticipant(ctx context.Context, r ref.Ref) (*thing.Participant, error) {
	var col string
	var arg any
	switch r.Namespace {
	case ref.NsPatID:
		col, arg = "id", r.Num
	case ref.NsUsername:
		col, arg = "username", r.Key
	case ref.NsRefID:
		col, arg = "ref_id", r.Key
	case ref.NsExtID:
		col, arg = "ext_id", r.Key
	case ref.NsSSOID:
		col, arg = "sso_id", r.Key
	default:
		return nil, taskapi.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantCols+` FROM taskapi_participants WHERE `+col+` = $1`, arg)
	p, err := scanParticipant(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get participant: %w", err)
	}
	return p, nil
}

// GetCategory resolves a category by id, refid or extid.
func (s *Store) GetCategory(ctx context.Context, r ref.Ref) (*thing.Category, error) {
	var col string
	var arg any
	switch r.Namespace {
	case ref.NsCatID:
		col, arg = "id", r.Num
	case ref.NsRefID:
		col, arg = "ref_id", r.Key
	case ref.NsExtID:
		col, arg = "ext_id", r.Key
	default:
		return nil, taskapi.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+categoryCols+` FROM taskapi_categories WHERE `+col+` = $1`, arg)
	c, err := scanCategory(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get category: %w", err)
	}
	return c, nil
}

// GetTag resolves a tag by its internal id.
func (s *Store) GetTag(ctx context.Context, r ref.Ref) (*thing.Tag, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tagCols+` FROM taskapi_tags WHERE id = $1`, r.Num)
	t, err := scanTag(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get tag: %w", err)
	}
	return t, nil
}

// GetEvent resolves an activity-log event by its typeid.
func (s *Store) GetEvent(ctx context.Context, r ref.Ref) (*thing.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM taskapi_events WHERE id = $1`, r.Key)
	ev, err := scanEvent(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: get event: %w", err)
	}
	return ev, nil
}

func pageKey(r ref.Ref) (col string, arg any, ok bool) {
	switch r.Namespace {
	case ref.NsPageID:
		return "id", r.Num, true
	case ref.NsRefID:
		return "ref_id", r.Key, true
	case ref.NsExtID:
		return "ext_id", r.Key, true
	case ref.NsEmbURL:
		return "embedding_url", r.Key, true
	}
	return "", nil, false
}
