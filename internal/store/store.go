// Package store provides the SQLite-backed site repository the hierarchy is
// assembled from.
package store

import (
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/hierarchy/internal/hierarchy"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS authors (
	id           INTEGER PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS content_types (
	name           TEXT PRIMARY KEY,
	label          TEXT NOT NULL DEFAULT '',
	singular_label TEXT NOT NULL DEFAULT '',
	hierarchical   INTEGER NOT NULL DEFAULT 0,
	route_template TEXT NOT NULL DEFAULT '',
	has_archive    INTEGER NOT NULL DEFAULT 0,
	route_slug     TEXT NOT NULL DEFAULT '',
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS posts (
	id            INTEGER PRIMARY KEY,
	type          TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	slug          TEXT NOT NULL DEFAULT '',
	parent_id     INTEGER NOT NULL DEFAULT 0,
	menu_order    INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'publish',
	author_id     INTEGER NOT NULL DEFAULT 0,
	comment_count INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_posts_type ON posts(type, status);
CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id, slug);

CREATE TABLE IF NOT EXISTS options (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

// Option names.
const (
	OptionShowOnFront     = "show_on_front"
	OptionPageForPosts    = "page_for_posts"
	OptionPermalinkFront  = "permalink_front"
	OptionFixtureChecksum = "fixture_checksum"
)

const routeCacheSize = 512

// DB wraps a sql.DB with repository operations.
type DB struct {
	conn *sql.DB
	// paths caches route path lookups; 0 records a miss.
	paths *lru.Cache[string, int64]
}

// Verify *DB satisfies hierarchy.Repository at compile time.
var _ hierarchy.Repository = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	paths, err := lru.New[string, int64](routeCacheSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: route cache: %w", err)
	}
	return &DB{conn: conn, paths: paths}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
