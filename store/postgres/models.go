package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quillboard/taskapi/thing"
)

// Column lists shared by selects and RETURNING clauses. Scan helpers below
// must stay in the same order.
const (
	pageCols = `id, ref_id, ext_id, embedding_url, title, url_path, excerpt,
		author_id, category_id, tags, num_posts_total, num_likes,
		last_activity_at, deleted, created_at, updated_at`
	postCols = `id, page_id, nr, author_id, body_text, num_likes, deleted,
		created_at, updated_at`
	participantCols = `id, username, full_name, ref_id, ext_id, sso_id,
		tiny_avatar_url, is_staff, created_at, updated_at`
	categoryCols = `id, ref_id, ext_id, name, url_path, description,
		num_topics, created_at, updated_at`
	tagCols   = `id, ref_id, label, num_uses, created_at, updated_at`
	eventCols = `id, event_type, actor_ref, subject_ref, at, created_at, updated_at`
)

func scanPage(row pgx.Row) (*thing.Page, error) {
	var p thing.Page
	err := row.Scan(
		&p.ID, &p.RefID, &p.ExtID, &p.EmbeddingURL, &p.Title, &p.URLPath, &p.Excerpt,
		&p.AuthorID, &p.CategoryID, &p.Tags, &p.NumPostsTotal, &p.NumLikes,
		&p.LastActivityAt, &p.Deleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPost(row pgx.Row) (*thing.Post, error) {
	var p thing.Post
	err := row.Scan(
		&p.ID, &p.PageID, &p.Nr, &p.AuthorID, &p.BodyText, &p.NumLikes, &p.Deleted,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanParticipant(row pgx.Row) (*thing.Participant, error) {
	var p thing.Participant
	err := row.Scan(
		&p.ID, &p.Username, &p.FullName, &p.RefID, &p.ExtID, &p.SSOID,
		&p.TinyAvatarURL, &p.IsStaff, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCategory(row pgx.Row) (*thing.Category, error) {
	var c thing.Category
	err := row.Scan(
		&c.ID, &c.RefID, &c.ExtID, &c.Name, &c.URLPath, &c.Description,
		&c.NumTopics, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanTag(row pgx.Row) (*thing.Tag, error) {
	var t thing.Tag
	var refID string
	err := row.Scan(
		&t.ID, &refID, &t.Label, &t.NumUses, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanEvent(row pgx.Row) (*thing.Event, error) {
	var ev thing.Event
	err := row.Scan(
		&ev.ID, &ev.Type, &ev.ActorRef, &ev.SubjectRef, &ev.At,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// collect scans every row with scan and gathers the results.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("taskapi/postgres: scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskapi/postgres: iterate rows: %w", err)
	}
	return out, nil
}
