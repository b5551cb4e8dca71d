package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/hierarchy/internal/models"
)

// Builder assembles the hierarchy listing. A Builder holds no state between
// runs; every Assemble reads a fresh snapshot from its collaborators.
type Builder struct {
	repo       Repository
	settings   SettingsSource
	logger     *slog.Logger
	dateLayout string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithDateLayout sets the Go time layout used for node dates.
func WithDateLayout(layout string) Option {
	return func(b *Builder) {
		if layout != "" {
			b.dateLayout = layout
		}
	}
}

// New creates a Builder over repo and settings.
func New(repo Repository, settings SettingsSource, opts ...Option) *Builder {
	b := &Builder{
		repo:       repo,
		settings:   settings,
		logger:     slog.Default(),
		dateLayout: DefaultDateLayout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// assembly is the state of a single run.
type assembly struct {
	*Builder
	cfg       models.Settings
	pages     []models.Page
	pageByID  map[int64]models.Page
	parentOf  ParentFunc
	limit     int
	postsPage int64
	resolver  *RouteResolver
	out       listing
}

// Assemble builds the ordered listing: pages in tree order, each content
// type's section marker (and optionally its entries) under its anchor page,
// and unanchored types appended at the root.
func (b *Builder) Assemble(ctx context.Context) ([]Node, error) {
	cfg, err := b.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: load settings: %w", err)
	}
	return b.AssembleWith(ctx, cfg)
}

// AssembleWith is Assemble under cfg; the settings source is not read.
func (b *Builder) AssembleWith(ctx context.Context, cfg models.Settings) ([]Node, error) {
	a, pending, err := b.start(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for _, p := range a.pages {
		// The posts-index page is represented by the post section instead.
		if p.ID != a.postsPage {
			a.out.insert(pageNode(p, a.depthOf(p), a.dateLayout))
		}
		pending, err = a.placeAt(ctx, p, pending)
		if err != nil {
			return nil, err
		}
	}

	for _, t := range pending {
		if err := a.placeOrphan(ctx, t); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("hierarchy: assembled",
		slog.Int("pages", len(a.pages)),
		slog.Int("orphans", len(pending)),
		slog.Int("nodes", len(a.out)))
	return a.out, nil
}

func (b *Builder) start(ctx context.Context, settings models.Settings) (*assembly, []models.ContentType, error) {
	pages, err := b.repo.ListPages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("hierarchy: list pages: %w", err)
	}
	types, err := b.repo.ListContentTypes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("hierarchy: list content types: %w", err)
	}
	postsPage, err := b.repo.PostsIndexPageID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("hierarchy: posts page: %w", err)
	}
	front, err := b.repo.RouteFront(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("hierarchy: route front: %w", err)
	}

	pages = treeOrder(pages, func(p models.Page) models.Page { return p })
	pageByID := make(map[int64]models.Page, len(pages))
	for _, p := range pages {
		pageByID[p.ID] = p
	}

	var pending []models.ContentType
	for _, t := range types {
		if t.Name == models.PageType || settings.For(t.Name).Omit {
			continue
		}
		pending = append(pending, t)
	}

	a := &assembly{
		Builder:   b,
		cfg:       settings,
		pages:     pages,
		pageByID:  pageByID,
		parentOf:  parentIndex(pages),
		limit:     len(pages) + 1,
		postsPage: postsPage,
		resolver:  NewRouteResolver(b.repo, front, postsPage),
	}
	return a, pending, nil
}

// placeAt places every pending type anchored at p and returns the rest.
// A type is placed once, at the first page it resolves to.
func (a *assembly) placeAt(ctx context.Context, p models.Page, pending []models.ContentType) ([]models.ContentType, error) {
	var rest []models.ContentType
	for _, t := range pending {
		res, err := a.resolver.Resolve(ctx, t)
		if err != nil {
			return nil, err
		}
		if res.Anchor != p.ID {
			rest = append(rest, t)
			continue
		}
		if err := a.placeSection(ctx, t, p, res); err != nil {
			return nil, err
		}
	}
	return rest, nil
}

func (a *assembly) placeSection(ctx context.Context, t models.ContentType, anchor models.Page, res Resolution) error {
	depth := a.depthOf(anchor)
	if !res.SuppressPad {
		depth++
	}
	count, err := a.repo.CountEntries(ctx, t.Name)
	if err != nil {
		return fmt.Errorf("hierarchy: count %s: %w", t.Name, err)
	}
	ts := a.cfg.For(t.Name)
	section := sectionNode(t, a.sectionTitle(t), ts.Order, depth, PageRef(anchor.ID), count)
	a.out.insert(section)

	if !ts.ShowEntries {
		return nil
	}
	return a.appendEntries(ctx, t, section.Depth)
}

// appendEntries adds the entries of t right after its section, in source
// order. They are not subject to the insertion rule.
func (a *assembly) appendEntries(ctx context.Context, t models.ContentType, sectionDepth int) error {
	entries, err := a.repo.ListEntries(ctx, t.Name, t.Hierarchical)
	if err != nil {
		return fmt.Errorf("hierarchy: list entries %s: %w", t.Name, err)
	}
	if len(entries) == 0 {
		return nil
	}

	entryPage := func(e models.Entry) models.Page { return e.Page }
	if t.Hierarchical {
		entries = treeOrder(entries, entryPage)
	}
	records := make([]models.Page, len(entries))
	for i, e := range entries {
		records[i] = e.Page
	}
	parentOf := parentIndex(records)
	limit := len(entries) + 1

	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		if e.Type == "" {
			e.Type = t.Name
		}
		depth := sectionDepth + 1 + Depth(e.ParentID, parentOf, limit)
		nodes = append(nodes, entryNode(e, depth, a.dateLayout))
	}
	a.out.append(nodes...)
	return nil
}

func (a *assembly) placeOrphan(ctx context.Context, t models.ContentType) error {
	count, err := a.repo.CountEntries(ctx, t.Name)
	if err != nil {
		return fmt.Errorf("hierarchy: count %s: %w", t.Name, err)
	}
	a.logger.Debug("hierarchy: orphaned content type", slog.String("type", t.Name))
	a.out.insert(sectionNode(t, a.sectionTitle(t), a.cfg.For(t.Name).Order, 0, Ref{}, count))
	return nil
}

// sectionTitle labels a section; posts take the posts-index page title.
func (a *assembly) sectionTitle(t models.ContentType) string {
	if t.Name == models.PostsType && a.postsPage != 0 {
		if p, ok := a.pageByID[a.postsPage]; ok && p.Title != "" {
			return p.Title
		}
	}
	return t.DisplayLabel()
}

func (a *assembly) depthOf(p models.Page) int {
	return Depth(p.ParentID, a.parentOf, a.limit)
}
