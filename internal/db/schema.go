package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    min_count     INTEGER NOT NULL DEFAULT 1 CHECK (min_count >= 1),
    max_count     INTEGER NOT NULL DEFAULT 2,
    target_value  TEXT NOT NULL DEFAULT '75',
    max_value     TEXT NOT NULL DEFAULT '100',
    allow_repeats INTEGER NOT NULL DEFAULT 0,
    token_version INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME,
    CHECK (min_count <= max_count)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS desks (
    id      INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id),
    type    TEXT NOT NULL CHECK (type IN ('available', 'postcard', 'removed')),
    UNIQUE (user_id, type)
);

CREATE TABLE IF NOT EXISTS catalog_items (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL,
    year           INTEGER NOT NULL DEFAULT 0,
    country        TEXT NOT NULL DEFAULT '',
    value          TEXT NOT NULL,
    width          INTEGER,
    height         INTEGER,
    topics         TEXT NOT NULL DEFAULT '[]',
    catalog_number TEXT,
    image          BLOB,
    image_mime     TEXT,
    slug           TEXT NOT NULL UNIQUE,
    source_url     TEXT UNIQUE,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stamps (
    id           INTEGER PRIMARY KEY,
    catalog_id   INTEGER NOT NULL REFERENCES catalog_items(id),
    user_id      INTEGER NOT NULL REFERENCES users(id),
    desk_id      INTEGER NOT NULL REFERENCES desks(id),
    custom_name  TEXT,
    comment      TEXT,
    allow_repeat INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stamp_moves (
    id           INTEGER PRIMARY KEY,
    stamp_id     INTEGER NOT NULL REFERENCES stamps(id) ON DELETE CASCADE,
    from_desk_id INTEGER NOT NULL REFERENCES desks(id),
    to_desk_id   INTEGER NOT NULL REFERENCES desks(id),
    notes        TEXT,
    moved_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    moved_by     INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    expires_at INTEGER NOT NULL -- unix seconds
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
