package sqlite

import (
	"context"
	"fmt"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/thing"
)

// GetPage resolves a page by any page-addressing namespace.
func (s *Store) GetPage(ctx context.Context, r ref.Ref) (*thing.Page, error) {
	m := new(pageModel)
	q := s.sdb.NewSelect(m)
	switch r.Namespace {
	case ref.NsPageID:
		q = q.Where("id = ?", r.Num)
	case ref.NsRefID:
		q = q.Where("ref_id = ?", r.Key)
	case ref.NsExtID:
		q = q.Where("ext_id = ?", r.Key)
	case ref.NsEmbURL:
		q = q.Where("embedding_url = ?", r.Key)
	default:
		return nil, taskapi.ErrNotFound
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get page: %w", err)
	}
	return fromPageModel(m), nil
}

// GetPost resolves a post by its internal id.
func (s *Store) GetPost(ctx context.Context, r ref.Ref) (*thing.Post, error) {
	m := new(postModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", r.Num).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get post: %w", err)
	}
	return fromPostModel(m), nil
}

// GetParticipant resolves a member by any member-addressing namespace.
func (s *Store) GetParticipant(ctx context.Context, r ref.Ref) (*thing.Participant, error) {
	m := new(participantModel)
	q := s.sdb.NewSelect(m)
	switch r.Namespace {
	case ref.NsPatID:
		q = q.Where("id = ?", r.Num)
	case ref.NsUsername:
		q = q.Where("username = ?", r.Key)
	case ref.NsRefID:
		q = q.Where("ref_id = ?", r.Key)
	case ref.NsExtID:
		q = q.Where("ext_id = ?", r.Key)
	case ref.NsSSOID:
		q = q.Where("sso_id = ?", r.Key)
	default:
		return nil, taskapi.ErrNotFound
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get participant: %w", err)
	}
	return fromParticipantModel(m), nil
}

// GetCategory resolves a category by id, refid or extid.
func (s *Store) GetCategory(ctx context.Context, r ref.Ref) (*thing.Category, error) {
	m := new(categoryModel)
	q := s.sdb.NewSelect(m)
	switch r.Namespace {
	case ref.NsCatID:
		q = q.Where("id = ?", r.Num)
	case ref.NsRefID:
		q = q.Where("ref_id = ?", r.Key)
	case ref.NsExtID:
		q = q.Where("ext_id = ?", r.Key)
	default:
		return nil, taskapi.ErrNotFound
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get category: %w", err)
	}
	return fromCategoryModel(m), nil
}

// GetTag resolves a tag by its internal id.
func (s *Store) GetTag(ctx context.Context, r ref.Ref) (*thing.Tag, error) {
	m := new(tagModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", r.Num).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get tag: %w", err)
	}
	return fromTagModel(m), nil
}

// GetEvent resolves an activity-log event by its typeid.
func (s *Store) GetEvent(ctx context.Context, r ref.Ref) (*thing.Event, error) {
	m := new(eventModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", r.Key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: get event: %w", err)
	}
	return fromEventModel(m), nil
}
