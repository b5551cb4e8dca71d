package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/hierarchy/internal/models"
)

// Resolution is the outcome of anchoring a content type.
type Resolution struct {
	// Anchor is the page the type's section marker goes under, or 0.
	Anchor int64
	// SuppressPad drops the extra level normally added below the anchor,
	// because the anchor page itself stands in for the section marker.
	SuppressPad bool
}

// RouteResolver derives the anchor page of a content type from its routing
// configuration. The result does not depend on the page being visited; a
// resolver memoizes per type and is meant for a single assembly run.
type RouteResolver struct {
	repo      Repository
	front     string
	postsPage int64
	base      map[string]int64
}

// NewRouteResolver returns a resolver for one run. front is the site-wide
// route prefix and postsPage the designated posts-index page (0 for none).
func NewRouteResolver(repo Repository, front string, postsPage int64) *RouteResolver {
	return &RouteResolver{
		repo:      repo,
		front:     front,
		postsPage: postsPage,
		base:      make(map[string]int64),
	}
}

// Resolve returns the anchor of t.
//
// Precedence: the posts-index override beats a faux parent, which beats the
// anchor derived from the route template.
func (r *RouteResolver) Resolve(ctx context.Context, t models.ContentType) (Resolution, error) {
	if r.postsPageOverride(t) {
		return Resolution{Anchor: r.postsPage, SuppressPad: true}, nil
	}

	anchor, ok := r.base[t.Name]
	if !ok {
		var err error
		anchor, err = r.resolveBase(ctx, t)
		if err != nil {
			return Resolution{}, err
		}
		r.base[t.Name] = anchor
	}
	return Resolution{Anchor: anchor}, nil
}

// resolveBase applies the template and faux parent rules.
func (r *RouteResolver) resolveBase(ctx context.Context, t models.ContentType) (int64, error) {
	var anchor int64

	tmpl, err := r.repo.RouteTemplate(ctx, t.Name)
	if err != nil {
		return 0, fmt.Errorf("hierarchy: route template %s: %w", t.Name, err)
	}
	if parentPath, ok := ParentRoutePath(tmpl); ok {
		page, err := r.repo.PageByRoutePath(ctx, parentPath)
		if err != nil {
			return 0, fmt.Errorf("hierarchy: page by path %s: %w", parentPath, err)
		}
		// A miss usually means the routing cache is stale.
		if page != nil {
			anchor = page.ID
		}
	}

	faux, err := r.fauxParent(ctx, t)
	if err != nil {
		return 0, err
	}
	if faux != 0 {
		anchor = faux
	}
	return anchor, nil
}

// fauxParent finds a page used as the archive of a type without one.
func (r *RouteResolver) fauxParent(ctx context.Context, t models.ContentType) (int64, error) {
	slug := strings.Trim(t.RouteSlug, "/")
	if slug == "" || t.HasArchive {
		return 0, nil
	}
	page, err := r.repo.PageByRoutePath(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("hierarchy: faux parent %s: %w", slug, err)
	}
	if page == nil {
		return 0, nil
	}
	link, err := r.repo.Permalink(ctx, page.ID)
	if err != nil {
		return 0, fmt.Errorf("hierarchy: permalink %d: %w", page.ID, err)
	}
	if link == "" {
		return 0, nil
	}
	return page.ID, nil
}

// postsPageOverride reports whether posts are anchored at the posts-index
// page: the route prefix is customized and such a page is designated.
func (r *RouteResolver) postsPageOverride(t models.ContentType) bool {
	return t.Name == models.PostsType &&
		FrontCustomized(r.front) &&
		r.postsPage != 0
}

// FrontCustomized reports whether the site-wide route prefix differs from the bare root.
func FrontCustomized(front string) bool {
	return strings.Trim(front, "/ ") != ""
}

// ParentRoutePath returns the route path of the page a template points at.
// The last two segments of a template are the archive root and the entry
// slug; anything before them is the parent. Templates with fewer than three
// non-empty segments have no parent.
func ParentRoutePath(template string) (string, bool) {
	var segments []string
	for _, s := range strings.Split(strings.TrimSpace(template), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 3 {
		return "", false
	}
	return strings.Join(segments[:len(segments)-2], "/"), true
}
