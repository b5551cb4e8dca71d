// Package models defines the domain types shared by the store, the settings
// layer, and the hierarchy builder.
package models

import "time"

// Built-in content type names.
const (
	// PageType is the base tree. It is never anchored as a content type.
	PageType = "page"
	// PostsType is the type a designated posts-index page can stand in for.
	PostsType = "post"
)

// Page is a hierarchical content record.
type Page struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	ParentID  int64     `json:"parent_id"`
	Order     int       `json:"order"`
	Status    string    `json:"status"`
	Author    string    `json:"author"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is a single record belonging to a content type.
type Entry struct {
	Page
	Type string `json:"type"`
}

// ContentType describes a registered collection of entries.
type ContentType struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	SingularLabel string `json:"singular_label"`
	Hierarchical  bool   `json:"hierarchical"`
	RouteTemplate string `json:"route_template"`
	HasArchive    bool   `json:"has_archive"`
	RouteSlug     string `json:"route_slug"`
}

// DisplayLabel returns the plural label, falling back to the type name.
func (t ContentType) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Name
}
