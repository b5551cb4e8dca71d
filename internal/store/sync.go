package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/starford/hierarchy/internal/checksum"
	"github.com/starford/hierarchy/internal/fixture"
	"github.com/starford/hierarchy/internal/models"
)

// Import replaces the stored site with s inside one transaction and records
// sum as the snapshot checksum.
func (db *DB) Import(ctx context.Context, s *fixture.Site, sum string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"posts", "content_types", "authors", "options"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}

	if err := insertAuthors(ctx, tx, s.Authors); err != nil {
		return err
	}
	if err := insertContentTypes(ctx, tx, s.ContentTypeModels()); err != nil {
		return err
	}
	if err := insertRecords(ctx, tx, append(append([]fixture.Record(nil), s.Pages...), s.Entries...)); err != nil {
		return err
	}

	options := map[string]string{
		OptionShowOnFront:     s.Options.ShowOnFront,
		OptionPageForPosts:    strconv.FormatInt(s.Options.PageForPosts, 10),
		OptionPermalinkFront:  s.Options.PermalinkFront,
		OptionFixtureChecksum: sum,
	}
	for name, value := range options {
		if _, err := tx.ExecContext(ctx, `INSERT INTO options (name, value) VALUES (?, ?)`, name, value); err != nil {
			return fmt.Errorf("store: set option %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit import: %w", err)
	}
	db.paths.Purge()
	return nil
}

func insertAuthors(ctx context.Context, tx *sql.Tx, authors []fixture.Author) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO authors (id, display_name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare author insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range authors {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Name); err != nil {
			return fmt.Errorf("store: insert author %d: %w", a.ID, err)
		}
	}
	return nil
}

func insertContentTypes(ctx context.Context, tx *sql.Tx, types []models.ContentType) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO content_types
			(name, label, singular_label, hierarchical, route_template, has_archive, route_slug, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare content type insert: %w", err)
	}
	defer stmt.Close()
	for i, t := range types {
		if _, err := stmt.ExecContext(ctx, t.Name, t.Label, t.SingularLabel, t.Hierarchical,
			t.RouteTemplate, t.HasArchive, t.RouteSlug, i); err != nil {
			return fmt.Errorf("store: insert content type %s: %w", t.Name, err)
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []fixture.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts
			(id, type, title, slug, parent_id, menu_order, status, author_id, comment_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare post insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Type, r.Title, r.Slug, r.Parent, r.Order,
			r.Status, r.Author, r.Comments, r.Date); err != nil {
			return fmt.Errorf("store: insert post %d: %w", r.ID, err)
		}
	}
	return nil
}

// LoadFixture parses a YAML snapshot and imports it unless the stored
// checksum already matches. It reports whether anything changed.
func (db *DB) LoadFixture(ctx context.Context, data []byte) (bool, error) {
	sum := checksum.Sum(data)
	current, err := db.Option(ctx, OptionFixtureChecksum)
	if err != nil {
		return false, err
	}
	if current == sum {
		return false, nil
	}
	site, err := fixture.Parse(data)
	if err != nil {
		return false, err
	}
	if err := db.Import(ctx, site, sum); err != nil {
		return false, err
	}
	return true, nil
}

// SyncFixture brings the database up to date with the snapshot at path.
// An empty path is a no-op.
func SyncFixture(ctx context.Context, db *DB, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("store: read fixture: %w", err)
	}
	changed, err := db.LoadFixture(ctx, data)
	if err != nil {
		return err
	}
	if changed {
		logger.Info("sync: fixture imported", slog.String("path", path))
	} else {
		logger.Debug("sync: fixture unchanged", slog.String("path", path))
	}
	return nil
}
