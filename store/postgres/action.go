package postgres

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

	row := s.pool.QueryRow(ctx, `
		INSERT INTO taskapi_tags (ref_id, label, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (ref_id) WHERE ref_id <> ''
		DO UPDATE SET label = EXCLUDED.label, updated_at = EXCLUDED.updated_at
		RETURNING `+tagCols,
		refID, label, now)
	tag, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: upsert tag: %w", err)
	}
	return tag, nil
}

// CreatePage creates a page together with its body post (post nr 1), in
// one transaction.
func (s *Store) CreatePage(ctx context.Context, np action.NewPage) (*thing.Page, error) {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var pageID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO taskapi_pages (ref_id, title, url_path, excerpt, author_id,
			category_id, num_posts_total, last_activity_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7, $7)
		RETURNING id`,
		np.RefID, np.Title, np.URLPath, excerpt(np.BodyText),
		np.AuthorID, np.CategoryID, now).Scan(&pageID)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("taskapi/postgres: page refid %q already in use", np.RefID)
		}
		return nil, fmt.Errorf("taskapi/postgres: create page: %w", err)
	}

	urlPath := np.URLPath
	if urlPath == "" {
		urlPath = "/-" + strconv.FormatInt(pageID, 10)
		if _, err := tx.Exec(ctx,
			`UPDATE taskapi_pages SET url_path = $1 WHERE id = $2`, urlPath, pageID); err != nil {
			return nil, fmt.Errorf("taskapi/postgres: set url path: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO taskapi_posts (page_id, nr, author_id, body_text, created_at, updated_at)
		VALUES ($1, 1, $2, $3, $4, $4)`,
		pageID, np.AuthorID, np.BodyText, now)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: create page body: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE taskapi_categories
		SET num_topics = num_topics + 1, updated_at = $1
		WHERE id = $2`,
		now, np.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: bump category: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/postgres: commit: %w", err)
	}

	return &thing.Page{
		Entity:         taskapi.Entity{CreatedAt: now, UpdatedAt: now},
		ID:             pageID,
		RefID:          np.RefID,
		Title:          np.Title,
		URLPath:        urlPath,
		Excerpt:        excerpt(np.BodyText),
		AuthorID:       np.AuthorID,
		CategoryID:     np.CategoryID,
		NumPostsTotal:  1,
		LastActivityAt: now,
	}, nil
}

// CreateComment appends a comment to a page and bumps its activity, in one
// transaction. The update claims the next post nr under row lock, so two
// concurrent comments never collide on (page_id, nr).
func (s *Store) CreateComment(ctx context.Context, nc action.NewComment) (*thing.Post, error) {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var nr int
	err = tx.QueryRow(ctx, `
		UPDATE taskapi_pages
		SET num_posts_total = num_posts_total + 1, last_activity_at = $1, updated_at = $1
		WHERE id = $2
		RETURNING num_posts_total`,
		now, nc.PageID).Scan(&nr)
	if err != nil {
		if isNoRows(err) {
			return nil, taskapi.ErrNotFound
		}
		return nil, fmt.Errorf("taskapi/postgres: bump page activity: %w", err)
	}

	var postID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO taskapi_posts (page_id, nr, author_id, body_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`,
		nc.PageID, nr, nc.AuthorID, nc.BodyText, now).Scan(&postID)
	if err != nil {
		return nil, fmt.Errorf("taskapi/postgres: create comment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("taskapi/postgres: commit: %w", err)
	}

	return &thing.Post{
		Entity:   taskapi.Entity{CreatedAt: now, UpdatedAt: now},
		ID:       postID,
		PageID:   nc.PageID,
		Nr:       nr,
		AuthorID: nc.AuthorID,
		BodyText: nc.BodyText,
	}, nil
}

// DeletePost marks a post deleted. Idempotent.
func (s *Store) DeletePost(ctx context.Context, postID, _ int64, _ string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE taskapi_posts SET deleted = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), postID)
	if err != nil {
		return fmt.Errorf("taskapi/postgres: delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return taskapi.ErrNotFound
	}
	return nil
}

// SetVote sets or clears a Like vote on a page or post. Setting an
// already-set vote (or clearing an absent one) is a no-op.
func (s *Store) SetVote(ctx context.Context, v action.Vote) error {
	now := time.Now().UTC()

	var subject, bumpSQL string
	var subjectID int64
	switch {
	case v.PageID != 0:
		if _, err := s.GetPage(ctx, ref.Ref{Namespace: ref.NsPageID, Num: v.PageID}); err != nil {
			return err
		}
		subject = "pageid:" + strconv.FormatInt(v.PageID, 10)
		bumpSQL = `UPDATE taskapi_pages SET num_likes = num_likes + $1, updated_at = $2 WHERE id = $3`
		subjectID = v.PageID
	case v.PostID != 0:
		if _, err := s.GetPost(ctx, ref.Ref{Namespace: ref.NsPostID, Num: v.PostID}); err != nil {
			return err
		}
		subject = "postid:" + strconv.FormatInt(v.PostID, 10)
		bumpSQL = `UPDATE taskapi_posts SET num_likes = num_likes + $1, updated_at = $2 WHERE id = $3`
		subjectID = v.PostID
	default:
		return fmt.Errorf("taskapi/postgres: vote has no subject")
	}

	if v.Set {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO taskapi_votes (pat_id, subject, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (pat_id, subject) DO NOTHING`,
			v.PatID, subject, now)
		if err != nil {
			return fmt.Errorf("taskapi/postgres: set vote: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil // already set
		}
		if _, err := s.pool.Exec(ctx, bumpSQL, 1, now, subjectID); err != nil {
			return fmt.Errorf("taskapi/postgres: bump likes: %w", err)
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM taskapi_votes WHERE pat_id = $1 AND subject = $2`,
		v.PatID, subject)
	if err != nil {
		return fmt.Errorf("taskapi/postgres: clear vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil // nothing to clear
	}
	if _, err := s.pool.Exec(ctx, bumpSQL, -1, now, subjectID); err != nil {
		return fmt.Errorf("taskapi/postgres: drop likes: %w", err)
	}
	return nil
}

// SetNotfLevel records a participant's notification level for a page.
func (s *Store) SetNotfLevel(ctx context.Context, n action.NotfLevel) error {
	now := time.Now().UTC()

	if _, err := s.GetPage(ctx, ref.Ref{Namespace: ref.NsPageID, Num: n.PageID}); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO taskapi_notf_prefs (pat_id, page_id, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (pat_id, page_id)
		DO UPDATE SET level = EXCLUDED.level, updated_at = EXCLUDED.updated_at`,
		n.PatID, n.PageID, n.Level, now)
	if err != nil {
		return fmt.Errorf("taskapi/postgres: set notf level: %w", err)
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
