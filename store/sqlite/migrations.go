package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the taskapi sqlite store.
var Migrations = migrate.NewGroup("taskapi")

func exec(ctx context.Context, e migrate.Executor, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := e.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Migrations.MustRegister(
		// 001: Core entity tables and their lookup indexes.
		&migrate.Migration{
			Name:    "create_entity_tables",
			Version: "20260301120000",
			Up: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e, `
					CREATE TABLE IF NOT EXISTS taskapi_categories (
						id            INTEGER PRIMARY KEY,
						ref_id        TEXT,
						ext_id        TEXT,
						name          TEXT NOT NULL,
						url_path      TEXT,
						description   TEXT,
						num_topics    INTEGER NOT NULL DEFAULT 0,
						created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_categories_ref
						ON taskapi_categories (ref_id) WHERE ref_id IS NOT NULL AND ref_id != ''`, `
					CREATE TABLE IF NOT EXISTS taskapi_participants (
						id              INTEGER PRIMARY KEY,
						username        TEXT NOT NULL,
						full_name       TEXT,
						ref_id          TEXT,
						ext_id          TEXT,
						sso_id          TEXT,
						tiny_avatar_url TEXT,
						is_staff        INTEGER NOT NULL DEFAULT 0,
						created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_participants_username
						ON taskapi_participants (username)`, `
					CREATE INDEX IF NOT EXISTS idx_taskapi_participants_sso
						ON taskapi_participants (sso_id) WHERE sso_id IS NOT NULL AND sso_id != ''`, `
					CREATE TABLE IF NOT EXISTS taskapi_pages (
						id               INTEGER PRIMARY KEY,
						ref_id           TEXT,
						ext_id           TEXT,
						embedding_url    TEXT,
						title            TEXT NOT NULL,
						url_path         TEXT,
						excerpt          TEXT,
						author_id        INTEGER NOT NULL,
						category_id      INTEGER NOT NULL,
						tags             TEXT NOT NULL DEFAULT '[]',
						num_posts_total  INTEGER NOT NULL DEFAULT 0,
						num_likes        INTEGER NOT NULL DEFAULT 0,
						last_activity_at TEXT NOT NULL,
						deleted          INTEGER NOT NULL DEFAULT 0,
						created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_pages_ref
						ON taskapi_pages (ref_id) WHERE ref_id IS NOT NULL AND ref_id != ''`, `
					CREATE INDEX IF NOT EXISTS idx_taskapi_pages_emburl
						ON taskapi_pages (embedding_url) WHERE embedding_url IS NOT NULL AND embedding_url != ''`, `
					CREATE INDEX IF NOT EXISTS idx_taskapi_pages_category_created
						ON taskapi_pages (category_id, created_at DESC)`, `
					CREATE INDEX IF NOT EXISTS idx_taskapi_pages_activity
						ON taskapi_pages (last_activity_at DESC)`, `
					CREATE TABLE IF NOT EXISTS taskapi_posts (
						id         INTEGER PRIMARY KEY,
						page_id    INTEGER NOT NULL,
						nr         INTEGER NOT NULL,
						author_id  INTEGER NOT NULL,
						body_text  TEXT NOT NULL,
						num_likes  INTEGER NOT NULL DEFAULT 0,
						deleted    INTEGER NOT NULL DEFAULT 0,
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_posts_page_nr
						ON taskapi_posts (page_id, nr)`, `
					CREATE TABLE IF NOT EXISTS taskapi_tags (
						id         INTEGER PRIMARY KEY,
						ref_id     TEXT,
						label      TEXT NOT NULL,
						num_uses   INTEGER NOT NULL DEFAULT 0,
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_tags_ref
						ON taskapi_tags (ref_id) WHERE ref_id IS NOT NULL AND ref_id != ''`)
			},
			Down: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e,
					`DROP TABLE IF EXISTS taskapi_tags`,
					`DROP TABLE IF EXISTS taskapi_posts`,
					`DROP TABLE IF EXISTS taskapi_pages`,
					`DROP TABLE IF EXISTS taskapi_participants`,
					`DROP TABLE IF EXISTS taskapi_categories`)
			},
		},

		// 002: Activity log.
		&migrate.Migration{
			Name:    "create_events_table",
			Version: "20260301120100",
			Up: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e, `
					CREATE TABLE IF NOT EXISTS taskapi_events (
						id          TEXT PRIMARY KEY,
						event_type  TEXT NOT NULL,
						actor_ref   TEXT NOT NULL,
						subject_ref TEXT NOT NULL,
						at          TEXT NOT NULL,
						created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE INDEX IF NOT EXISTS idx_taskapi_events_at
						ON taskapi_events (at DESC)`)
			},
			Down: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e, `DROP TABLE IF EXISTS taskapi_events`)
			},
		},

		// 003: Per-participant state — votes and notification levels.
		&migrate.Migration{
			Name:    "create_pat_state_tables",
			Version: "20260301120200",
			Up: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e, `
					CREATE TABLE IF NOT EXISTS taskapi_votes (
						id         TEXT PRIMARY KEY,
						pat_id     INTEGER NOT NULL,
						subject    TEXT NOT NULL,
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`, `
					CREATE TABLE IF NOT EXISTS taskapi_notf_prefs (
						id         TEXT PRIMARY KEY,
						pat_id     INTEGER NOT NULL,
						page_id    INTEGER NOT NULL,
						level      TEXT NOT NULL,
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`)
			},
			Down: func(ctx context.Context, e migrate.Executor) error {
				return exec(ctx, e,
					`DROP TABLE IF EXISTS taskapi_notf_prefs`,
					`DROP TABLE IF EXISTS taskapi_votes`)
			},
		},
	)
}
