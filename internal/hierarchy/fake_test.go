package hierarchy

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/starford/hierarchy/internal/models"
)

// fakeRepo is an in-memory Repository for builder tests.
type fakeRepo struct {
	pages     []models.Page
	types     []models.ContentType
	entries   map[string][]models.Entry
	postsPage int64
	front     string
	dead      map[int64]bool // pages without a live permalink
	err       error
	calls     int
}

func (f *fakeRepo) ListPages(context.Context) ([]models.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := slices.Clone(f.pages)
	slices.SortStableFunc(out, func(a, b models.Page) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return out, nil
}

func (f *fakeRepo) ListContentTypes(context.Context) ([]models.ContentType, error) {
	return slices.Clone(f.types), nil
}

func (f *fakeRepo) ListEntries(_ context.Context, typeName string, _ bool) ([]models.Entry, error) {
	return slices.Clone(f.entries[typeName]), nil
}

func (f *fakeRepo) CountEntries(_ context.Context, typeName string) (int, error) {
	return len(f.entries[typeName]), nil
}

func (f *fakeRepo) RouteTemplate(_ context.Context, typeName string) (string, error) {
	for _, t := range f.types {
		if t.Name == typeName {
			return t.RouteTemplate, nil
		}
	}
	return "", nil
}

func (f *fakeRepo) PageByRoutePath(_ context.Context, path string) (*models.Page, error) {
	path = strings.Trim(path, "/")
	for _, p := range f.pages {
		if f.routePath(p.ID) == path {
			page := p
			return &page, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Permalink(_ context.Context, id int64) (string, error) {
	if f.dead[id] {
		return "", nil
	}
	return "/" + f.routePath(id) + "/", nil
}

func (f *fakeRepo) PostsIndexPageID(context.Context) (int64, error) { return f.postsPage, nil }

func (f *fakeRepo) RouteFront(context.Context) (string, error) { return f.front, nil }

func (f *fakeRepo) routePath(id int64) string {
	byID := make(map[int64]models.Page, len(f.pages))
	for _, p := range f.pages {
		byID[p.ID] = p
	}
	var slugs []string
	for hops := 0; id != 0 && hops <= len(f.pages); hops++ {
		p, ok := byID[id]
		if !ok {
			break
		}
		slugs = append([]string{p.Slug}, slugs...)
		id = p.ParentID
	}
	return strings.Join(slugs, "/")
}

// staticSettings is a fixed SettingsSource.
type staticSettings models.Settings

func (s staticSettings) Current(context.Context) (models.Settings, error) {
	return models.Settings(s), nil
}

func page(id, parent int64, order int, title, slug string) models.Page {
	return models.Page{ID: id, ParentID: parent, Order: order, Title: title, Slug: slug, Status: "publish"}
}

func entry(typeName string, id, parent int64, order int, title string) models.Entry {
	return models.Entry{Page: page(id, parent, order, title, strings.ToLower(title)), Type: typeName}
}

// ids renders a listing as "kind:source" tokens.
func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(n.Kind) + ":" + n.SourceID()
	}
	return out
}
