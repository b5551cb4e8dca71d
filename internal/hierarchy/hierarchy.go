// Package hierarchy merges the page tree with the site's other content types
// into one ordered, indented listing.
//
// The page records form the base tree. Every other content type is anchored
// below the page its route template points at, or appended at the root when
// no page matches. The result is a flat slice in display order where each
// node carries its depth.
package hierarchy

import (
	"context"
	"strconv"
	"strings"

	"github.com/starford/hierarchy/internal/models"
)

// Repository supplies the content the builder works from.
// Implementations report only collaborator faults as errors; a lookup that
// finds nothing returns a zero value.
type Repository interface {
	// ListPages returns every page sorted by order, then title.
	ListPages(ctx context.Context) ([]models.Page, error)
	// ListContentTypes returns the registered content types in registration order.
	ListContentTypes(ctx context.Context) ([]models.ContentType, error)
	// ListEntries returns the entries of a type. Hierarchical types are
	// fetched page-style (order, title), flat types newest first.
	ListEntries(ctx context.Context, typeName string, hierarchical bool) ([]models.Entry, error)
	// CountEntries counts the entries of a type across the editable statuses.
	CountEntries(ctx context.Context, typeName string) (int, error)
	// RouteTemplate returns the archive route template of a type, or "".
	RouteTemplate(ctx context.Context, typeName string) (string, error)
	// PageByRoutePath returns the page whose full route path equals path, or nil.
	PageByRoutePath(ctx context.Context, path string) (*models.Page, error)
	// Permalink returns the live permalink of a page, or "".
	Permalink(ctx context.Context, pageID int64) (string, error)
	// PostsIndexPageID returns the page designated to show posts, or 0.
	PostsIndexPageID(ctx context.Context) (int64, error)
	// RouteFront returns the site-wide route prefix.
	RouteFront(ctx context.Context) (string, error)
}

// SettingsSource supplies the current per-type settings.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// Kind identifies what a node stands for.
type Kind string

// Node kinds.
const (
	KindPage    Kind = "page"
	KindSection Kind = "section"
	KindEntry   Kind = "entry"
)

// Ref names the node another node is nested under: a page or entry by ID,
// or a section marker by type name. The zero Ref is the root.
type Ref struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// PageRef returns a reference to a page or entry.
func PageRef(id int64) Ref { return Ref{ID: id} }

// TypeRef returns a reference to a section marker.
func TypeRef(name string) Ref { return Ref{Type: name} }

// IsRoot reports whether r is the root.
func (r Ref) IsRoot() bool { return r == Ref{} }

// Node is one row of the assembled listing.
type Node struct {
	Kind     Kind   `json:"kind"`
	ID       int64  `json:"id,omitempty"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Depth    int    `json:"depth"`
	Order    int    `json:"order"`
	Parent   Ref    `json:"parent"`
	Author   string `json:"author,omitempty"`
	Comments int    `json:"comments"`
	Date     string `json:"date,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// SourceID returns the page or entry ID, or the type name for a section.
func (n Node) SourceID() string {
	if n.Kind == KindSection {
		return n.Type
	}
	return strconv.FormatInt(n.ID, 10)
}

// PaddedTitle returns the title indented with one em-dash per level.
func (n Node) PaddedTitle() string {
	return strings.Repeat("— ", n.Depth) + n.Title
}
