package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/action"
	"github.com/quillboard/taskapi/ref"
	"github.com/quillboard/taskapi/thing"
)

// UpsertTagType creates a tag type keyed by refID, or relabels it if it
// already exists.
func (s *Store) UpsertTagType(ctx context.Context, refID, label string) (*thing.Tag, error) {
	now := time.Now().UTC()

	m := new(tagModel)
	err := s.sdb.NewSelect(m).
		Where("ref_id = ?", refID).
		Limit(1).
		Scan(ctx)
	if err == nil {
		_, uerr := s.sdb.NewUpdate((*tagModel)(nil)).
			Set("label = ?", label).
			Set("updated_at = ?", now).
			Where("id = ?", m.ID).
			Exec(ctx)
		if uerr != nil {
			return nil, fmt.Errorf("taskapi/sqlite: relabel tag: %w", uerr)
		}
		m.Label = label
		m.UpdatedAt = now
		return fromTagModel(m), nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("taskapi/sqlite: find tag: %w", err)
	}

	id, err := s.nextID(ctx, "taskapi_tags")
	if err != nil {
		return nil, err
	}
	m = &tagModel{ID: id, RefID: refID, Label: label, CreatedAt: now, UpdatedAt: now}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: create tag: %w", err)
	}
	return fromTagModel(m), nil
}

// CreatePage creates a page together with its body post (post nr 1).
func (s *Store) CreatePage(ctx context.Context, np action.NewPage) (*thing.Page, error) {
	now := time.Now().UTC()

	pageID, err := s.nextID(ctx, "taskapi_pages")
	if err != nil {
		return nil, err
	}
	urlPath := np.URLPath
	if urlPath == "" {
		urlPath = "/-" + strconv.FormatInt(pageID, 10)
	}

	pm := &pageModel{
		ID:             pageID,
		RefID:          np.RefID,
		Title:          np.Title,
		URLPath:        urlPath,
		Excerpt:        excerpt(np.BodyText),
		AuthorID:       np.AuthorID,
		CategoryID:     np.CategoryID,
		Tags:           "[]",
		NumPostsTotal:  1,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.sdb.NewInsert(pm).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("taskapi/sqlite: page refid %q already in use", np.RefID)
		}
		return nil, fmt.Errorf("taskapi/sqlite: create page: %w", err)
	}

	postID, err := s.nextID(ctx, "taskapi_posts")
	if err != nil {
		return nil, err
	}
	body := &postModel{
		ID:        postID,
		PageID:    pageID,
		Nr:        1,
		AuthorID:  np.AuthorID,
		BodyText:  np.BodyText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.sdb.NewInsert(body).Exec(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: create page body: %w", err)
	}

	_, err = s.sdb.NewUpdate((*categoryModel)(nil)).
		Set("num_topics = num_topics + 1").
		Set("updated_at = ?", now).
		Where("id = ?", np.CategoryID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: bump category: %w", err)
	}

	return fromPageModel(pm), nil
}

// CreateComment appends a comment to a page and bumps its activity.
func (s *Store) CreateComment(ctx context.Context, nc action.NewComment) (*thing.Post, error) {
	now := time.Now().UTC()

	page := new(pageModel)
	err := s.sdb.NewSelect(page).
		Where("id = ?", nc.PageID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/sqlite: find page: %w", err)
	}

	postID, err := s.nextID(ctx, "taskapi_posts")
	if err != nil {
		return nil, err
	}
	pm := &postModel{
		ID:        postID,
		PageID:    page.ID,
		Nr:        page.NumPostsTotal + 1,
		AuthorID:  nc.AuthorID,
		BodyText:  nc.BodyText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.sdb.NewInsert(pm).Exec(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: create comment: %w", err)
	}

	_, err = s.sdb.NewUpdate((*pageModel)(nil)).
		Set("num_posts_total = num_posts_total + 1").
		Set("last_activity_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", page.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskapi/sqlite: bump page activity: %w", err)
	}

	return fromPostModel(pm), nil
}

// DeletePost marks a post deleted. Idempotent.
func (s *Store) DeletePost(ctx context.Context, postID, _ int64, _ string) error {
	res, err := s.sdb.NewUpdate((*postModel)(nil)).
		Set("deleted = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", postID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("taskapi/sqlite: delete post: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 { //nolint:errcheck // driver always returns nil
		return taskapi.ErrNotFound
	}
	return nil
}

// SetVote sets or clears a Like vote on a page or post. Setting an
// already-set vote (or clearing an absent one) is a no-op.
func (s *Store) SetVote(ctx context.Context, v action.Vote) error {
	now := time.Now().UTC()

	var subject string
	var bump func(delta int) error
	switch {
	case v.PageID != 0:
		if _, err := s.GetPage(ctx, ref.Ref{Namespace: ref.NsPageID, Num: v.PageID}); err != nil {
			return err
		}
		subject = "pageid:" + strconv.FormatInt(v.PageID, 10)
		bump = func(delta int) error {
			_, err := s.sdb.NewUpdate((*pageModel)(nil)).
				Set(fmt.Sprintf("num_likes = num_likes + %d", delta)).
				Set("updated_at = ?", now).
				Where("id = ?", v.PageID).
				Exec(ctx)
			return err
		}
	case v.PostID != 0:
		if _, err := s.GetPost(ctx, ref.Ref{Namespace: ref.NsPostID, Num: v.PostID}); err != nil {
			return err
		}
		subject = "postid:" + strconv.FormatInt(v.PostID, 10)
		bump = func(delta int) error {
			_, err := s.sdb.NewUpdate((*postModel)(nil)).
				Set(fmt.Sprintf("num_likes = num_likes + %d", delta)).
				Set("updated_at = ?", now).
				Where("id = ?", v.PostID).
				Exec(ctx)
			return err
		}
	default:
		return fmt.Errorf("taskapi/sqlite: vote has no subject")
	}

	voteID := strconv.FormatInt(v.PatID, 10) + "|" + subject
	if v.Set {
		m := &voteModel{ID: voteID, PatID: v.PatID, Subject: subject, CreatedAt: now, UpdatedAt: now}
		if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
			if isDuplicateKey(err) {
				return nil // already set
			}
			return fmt.Errorf("taskapi/sqlite: set vote: %w", err)
		}
		if err := bump(1); err != nil {
			return fmt.Errorf("taskapi/sqlite: bump likes: %w", err)
		}
		return nil
	}

	res, err := s.sdb.NewDelete((*voteModel)(nil)).
		Where("id = ?", voteID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("taskapi/sqlite: clear vote: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 { //nolint:errcheck // driver always returns nil
		return nil // nothing to clear
	}
	if err := bump(-1); err != nil {
		return fmt.Errorf("taskapi/sqlite: drop likes: %w", err)
	}
	return nil
}

// SetNotfLevel records a participant's notification level for a page.
func (s *Store) SetNotfLevel(ctx context.Context, n action.NotfLevel) error {
	now := time.Now().UTC()

	if _, err := s.GetPage(ctx, ref.Ref{Namespace: ref.NsPageID, Num: n.PageID}); err != nil {
		return err
	}

	prefID := strconv.FormatInt(n.PatID, 10) + "|" + strconv.FormatInt(n.PageID, 10)
	m := &notfPrefModel{
		ID:        prefID,
		PatID:     n.PatID,
		PageID:    n.PageID,
		Level:     n.Level,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if !isDuplicateKey(err) {
			return fmt.Errorf("taskapi/sqlite: set notf level: %w", err)
		}
		_, uerr := s.sdb.NewUpdate((*notfPrefModel)(nil)).
			Set("level = ?", n.Level).
			Set("updated_at = ?", now).
			Where("id = ?", prefID).
			Exec(ctx)
		if uerr != nil {
			return fmt.Errorf("taskapi/sqlite: update notf level: %w", uerr)
		}
	}
	return nil
}

// excerpt returns the listing excerpt for a page body.
func excerpt(body string) string {
	const maxLen = 160
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen]
}
