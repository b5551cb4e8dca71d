package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/hierarchy/internal/models"
)

// countedStatuses are the statuses included in entry counts.
var countedStatuses = []any{"publish", "future", "draft", "pending", "private", "inherit"}

// dateLayouts are tried in order when reading stored dates.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

const recordColumns = `
	p.id, p.type, p.title, p.slug, p.parent_id, p.menu_order, p.status,
	COALESCE(a.display_name, ''), p.comment_count, p.created_at`

const recordFrom = `
	FROM posts p
	LEFT JOIN authors a ON a.id = p.author_id
	WHERE p.type = ? AND p.status NOT IN ('trash', 'auto-draft')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (models.Entry, error) {
	var (
		e       models.Entry
		created string
	)
	if err := r.Scan(&e.ID, &e.Type, &e.Title, &e.Slug, &e.ParentID, &e.Order, &e.Status,
		&e.Author, &e.Comments, &created); err != nil {
		return models.Entry{}, err
	}
	e.CreatedAt = parseDate(created)
	return e, nil
}

// parseDate returns the zero time for dates it cannot read.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (db *DB) listRecords(ctx context.Context, typeName, orderBy string) ([]models.Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+recordColumns+recordFrom+` ORDER BY `+orderBy, typeName)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", typeName, err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListPages returns every page sorted by order, then title.
func (db *DB) ListPages(ctx context.Context) ([]models.Page, error) {
	entries, err := db.listRecords(ctx, models.PageType, "p.menu_order, p.title, p.id")
	if err != nil {
		return nil, err
	}
	out := make([]models.Page, len(entries))
	for i, e := range entries {
		out[i] = e.Page
	}
	return out, nil
}

// ListEntries returns the entries of a type. Hierarchical types come in
// page order, flat types newest first.
func (db *DB) ListEntries(ctx context.Context, typeName string, hierarchical bool) ([]models.Entry, error) {
	orderBy := "p.created_at DESC, p.id DESC"
	if hierarchical {
		orderBy = "p.menu_order, p.title, p.id"
	}
	return db.listRecords(ctx, typeName, orderBy)
}

// CountEntries counts the entries of a type in the editable statuses.
func (db *DB) CountEntries(ctx context.Context, typeName string) (int, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(countedStatuses)), ",")
	args := append([]any{typeName}, countedStatuses...)
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM posts WHERE type = ? AND status IN (`+placeholders+`)`, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", typeName, err)
	}
	return n, nil
}

// ListContentTypes returns the registered types in registration order.
func (db *DB) ListContentTypes(ctx context.Context) ([]models.ContentType, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, label, singular_label, hierarchical, route_template, has_archive, route_slug
		FROM content_types ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("store: list content types: %w", err)
	}
	defer rows.Close()

	var out []models.ContentType
	for rows.Next() {
		var t models.ContentType
		if err := rows.Scan(&t.Name, &t.Label, &t.SingularLabel, &t.Hierarchical,
			&t.RouteTemplate, &t.HasArchive, &t.RouteSlug); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ContentType returns a registered type, or nil.
func (db *DB) ContentType(ctx context.Context, name string) (*models.ContentType, error) {
	var t models.ContentType
	err := db.conn.QueryRowContext(ctx, `
		SELECT name, label, singular_label, hierarchical, route_template, has_archive, route_slug
		FROM content_types WHERE name = ?`, name).Scan(&t.Name, &t.Label, &t.SingularLabel,
		&t.Hierarchical, &t.RouteTemplate, &t.HasArchive, &t.RouteSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: content type %s: %w", name, err)
	}
	return &t, nil
}

// RouteTemplate returns the archive route template of a type, or "".
func (db *DB) RouteTemplate(ctx context.Context, typeName string) (string, error) {
	t, err := db.ContentType(ctx, typeName)
	if err != nil || t == nil {
		return "", err
	}
	return t.RouteTemplate, nil
}

// Page returns a page by id, or nil.
func (db *DB) Page(ctx context.Context, id int64) (*models.Page, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+recordColumns+recordFrom+` AND p.id = ?`, models.PageType, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: page %d: %w", id, err)
	}
	return &e.Page, nil
}

// PageByRoutePath returns the page whose slug chain equals path, or nil.
// Results, misses included, are cached until the next import.
func (db *DB) PageByRoutePath(ctx context.Context, path string) (*models.Page, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	id, ok := db.paths.Get(path)
	if !ok {
		var err error
		id, err = db.walkSlugs(ctx, strings.Split(path, "/"))
		if err != nil {
			return nil, err
		}
		db.paths.Add(path, id)
	}
	if id == 0 {
		return nil, nil
	}
	return db.Page(ctx, id)
}

func (db *DB) walkSlugs(ctx context.Context, slugs []string) (int64, error) {
	var parent int64
	for _, slug := range slugs {
		var id int64
		err := db.conn.QueryRowContext(ctx, `
			SELECT id FROM posts
			WHERE type = ? AND slug = ? AND parent_id = ? AND status NOT IN ('trash', 'auto-draft')
			ORDER BY id LIMIT 1`, models.PageType, slug, parent).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("store: route path: %w", err)
		}
		parent = id
	}
	return parent, nil
}

// Permalink returns the public link of a published or private page, or "".
func (db *DB) Permalink(ctx context.Context, pageID int64) (string, error) {
	p, err := db.Page(ctx, pageID)
	if err != nil || p == nil {
		return "", err
	}
	if p.Status != "publish" && p.Status != "private" {
		return "", nil
	}

	slugs := []string{p.Slug}
	seen := map[int64]bool{p.ID: true}
	for parent := p.ParentID; parent != 0 && !seen[parent]; {
		seen[parent] = true
		ancestor, err := db.Page(ctx, parent)
		if err != nil {
			return "", err
		}
		if ancestor == nil {
			break
		}
		slugs = append([]string{ancestor.Slug}, slugs...)
		parent = ancestor.ParentID
	}
	return "/" + strings.Join(slugs, "/") + "/", nil
}

// PostsIndexPageID returns the page designated to list posts, or 0. A
// designation only counts while a static front page is configured.
func (db *DB) PostsIndexPageID(ctx context.Context) (int64, error) {
	front, err := db.Option(ctx, OptionShowOnFront)
	if err != nil || front != "page" {
		return 0, err
	}
	raw, err := db.Option(ctx, OptionPageForPosts)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, nil
	}
	return id, nil
}

// RouteFront returns the site-wide route prefix.
func (db *DB) RouteFront(ctx context.Context) (string, error) {
	return db.Option(ctx, OptionPermalinkFront)
}

// Option returns a stored option value, or "" if unset.
func (db *DB) Option(ctx context.Context, name string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: option %s: %w", name, err)
	}
	return v, nil
}
