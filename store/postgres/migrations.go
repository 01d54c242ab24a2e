package postgres

// migrations is the ordered schema history. Each entry runs once; applied
// names are tracked in taskapi_migrations.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "001_create_entity_tables",
		sql: `
			CREATE TABLE IF NOT EXISTS taskapi_categories (
				id          BIGSERIAL PRIMARY KEY,
				ref_id      TEXT NOT NULL DEFAULT '',
				ext_id      TEXT NOT NULL DEFAULT '',
				name        TEXT NOT NULL,
				url_path    TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				num_topics  INTEGER NOT NULL DEFAULT 0,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_categories_ref
				ON taskapi_categories (ref_id) WHERE ref_id <> '';

			CREATE TABLE IF NOT EXISTS taskapi_participants (
				id              BIGSERIAL PRIMARY KEY,
				username        TEXT NOT NULL,
				full_name       TEXT NOT NULL DEFAULT '',
				ref_id          TEXT NOT NULL DEFAULT '',
				ext_id          TEXT NOT NULL DEFAULT '',
				sso_id          TEXT NOT NULL DEFAULT '',
				tiny_avatar_url TEXT NOT NULL DEFAULT '',
				is_staff        BOOLEAN NOT NULL DEFAULT FALSE,
				created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_participants_username
				ON taskapi_participants (username);
			CREATE INDEX IF NOT EXISTS idx_taskapi_participants_sso
				ON taskapi_participants (sso_id) WHERE sso_id <> '';

			CREATE TABLE IF NOT EXISTS taskapi_pages (
				id               BIGSERIAL PRIMARY KEY,
				ref_id           TEXT NOT NULL DEFAULT '',
				ext_id           TEXT NOT NULL DEFAULT '',
				embedding_url    TEXT NOT NULL DEFAULT '',
				title            TEXT NOT NULL,
				url_path         TEXT NOT NULL DEFAULT '',
				excerpt          TEXT NOT NULL DEFAULT '',
				author_id        BIGINT NOT NULL,
				category_id      BIGINT NOT NULL,
				tags             TEXT[] NOT NULL DEFAULT '{}',
				num_posts_total  INTEGER NOT NULL DEFAULT 0,
				num_likes        INTEGER NOT NULL DEFAULT 0,
				last_activity_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted          BOOLEAN NOT NULL DEFAULT FALSE,
				created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_pages_ref
				ON taskapi_pages (ref_id) WHERE ref_id <> '';
			CREATE INDEX IF NOT EXISTS idx_taskapi_pages_emburl
				ON taskapi_pages (embedding_url) WHERE embedding_url <> '';
			CREATE INDEX IF NOT EXISTS idx_taskapi_pages_category_created
				ON taskapi_pages (category_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_taskapi_pages_activity
				ON taskapi_pages (last_activity_at DESC);
			CREATE INDEX IF NOT EXISTS idx_taskapi_pages_tags
				ON taskapi_pages USING GIN (tags);

			CREATE TABLE IF NOT EXISTS taskapi_posts (
				id         BIGSERIAL PRIMARY KEY,
				page_id    BIGINT NOT NULL,
				nr         INTEGER NOT NULL,
				author_id  BIGINT NOT NULL,
				body_text  TEXT NOT NULL,
				num_likes  INTEGER NOT NULL DEFAULT 0,
				deleted    BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_posts_page_nr
				ON taskapi_posts (page_id, nr);

			CREATE TABLE IF NOT EXISTS taskapi_tags (
				id         BIGSERIAL PRIMARY KEY,
				ref_id     TEXT NOT NULL DEFAULT '',
				label      TEXT NOT NULL,
				num_uses   INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_taskapi_tags_ref
				ON taskapi_tags (ref_id) WHERE ref_id <> '';
		`,
	},
	{
		name: "002_create_events_table",
		sql: `
			CREATE TABLE IF NOT EXISTS taskapi_events (
				id          TEXT PRIMARY KEY,
				event_type  TEXT NOT NULL,
				actor_ref   TEXT NOT NULL,
				subject_ref TEXT NOT NULL,
				at          TIMESTAMPTZ NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_taskapi_events_at
				ON taskapi_events (at DESC);
		`,
	},
	{
		name: "003_create_pat_state_tables",
		sql: `
			CREATE TABLE IF NOT EXISTS taskapi_votes (
				pat_id     BIGINT NOT NULL,
				subject    TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (pat_id, subject)
			);

			CREATE TABLE IF NOT EXISTS taskapi_notf_prefs (
				pat_id     BIGINT NOT NULL,
				page_id    BIGINT NOT NULL,
				level      TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (pat_id, page_id)
			);
		`,
	},
}
