package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL of the repository. Statements are idempotent so
// dev setups and test containers can apply them on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS identifiers (
	id          CHAR(8) PRIMARY KEY,
	redirect_to CHAR(8)
);

CREATE TABLE IF NOT EXISTS sources (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	quality        INT  NOT NULL DEFAULT 0,
	default_status INT  NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS documents (
	source_id           TEXT    NOT NULL,
	local_id            TEXT    NOT NULL,
	version             INT     NOT NULL,
	subject_id          CHAR(8) NOT NULL,
	original_subject_id TEXT    NOT NULL DEFAULT '',
	details             JSONB   NOT NULL DEFAULT '{}',
	payload             TEXT    NOT NULL DEFAULT '',
	source_url          TEXT    NOT NULL DEFAULT '',
	author              TEXT    NOT NULL DEFAULT '',
	comment             TEXT    NOT NULL DEFAULT '',
	saved_at            TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source_id, local_id, version)
);
CREATE INDEX IF NOT EXISTS documents_subject_idx ON documents (subject_id);
CREATE INDEX IF NOT EXISTS documents_author_idx ON documents (author);

CREATE TABLE IF NOT EXISTS subjects (
	id           CHAR(8) PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	sort_key     TEXT NOT NULL DEFAULT '',
	family_name  TEXT NOT NULL DEFAULT '',
	sex          TEXT NOT NULL DEFAULT '',
	birth_min    TEXT NOT NULL DEFAULT '',
	birth_max    TEXT NOT NULL DEFAULT '',
	death_min    TEXT NOT NULL DEFAULT '',
	death_max    TEXT NOT NULL DEFAULT '',
	birth_place  TEXT NOT NULL DEFAULT '',
	death_place  TEXT NOT NULL DEFAULT '',
	status       INT  NOT NULL DEFAULT 1,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subject_name_tokens (
	subject_id       CHAR(8) NOT NULL,
	token            TEXT    NOT NULL,
	from_family_name BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS subject_name_tokens_idx ON subject_name_tokens (token);
CREATE INDEX IF NOT EXISTS subject_name_tokens_subject_idx ON subject_name_tokens (subject_id);

CREATE TABLE IF NOT EXISTS subject_phonetic_keys (
	subject_id       CHAR(8) NOT NULL,
	key              TEXT    NOT NULL,
	from_family_name BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS subject_phonetic_keys_idx ON subject_phonetic_keys (key);
CREATE INDEX IF NOT EXISTS subject_phonetic_keys_subject_idx ON subject_phonetic_keys (subject_id);

CREATE TABLE IF NOT EXISTS subject_sources (
	subject_id CHAR(8) NOT NULL,
	source_id  TEXT    NOT NULL,
	PRIMARY KEY (subject_id, source_id)
);

CREATE TABLE IF NOT EXISTS similarity_cache (
	id_low  CHAR(8) NOT NULL,
	id_high CHAR(8) NOT NULL,
	score   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (id_low, id_high)
);

CREATE TABLE IF NOT EXISTS pair_witness (
	id_low  CHAR(8) NOT NULL,
	id_high CHAR(8) NOT NULL,
	kind    TEXT    NOT NULL,
	PRIMARY KEY (id_low, id_high, kind)
);

CREATE TABLE IF NOT EXISTS change_log (
	id           UUID PRIMARY KEY,
	editor       TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	record_table TEXT NOT NULL DEFAULT '',
	record_id    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS change_log_table_idx ON change_log (record_table);
`

// EnsureSchema applies the DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
