// Package service coordinates the site store, the settings file and the
// hierarchy builder behind the REST and MCP surfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/hierarchy/internal/apperr"
	"github.com/starford/hierarchy/internal/hierarchy"
	"github.com/starford/hierarchy/internal/models"
	"github.com/starford/hierarchy/internal/settings"
	"github.com/starford/hierarchy/internal/store"
)

// Change event kinds.
const (
	EventSettingsUpdated  = "settings.updated"
	EventSettingsReloaded = "settings.reloaded"
	EventContentImported  = "content.imported"
)

// Notifier receives change notifications.
type Notifier interface {
	PublishChange(kind, subject string)
}

// HierarchyPage is one page of the assembled listing.
type HierarchyPage struct {
	Nodes []hierarchy.Node `json:"nodes"`
	Meta  Meta             `json:"meta"`
}

// Placement describes where a content type lands in the listing.
type Placement struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Omitted     bool   `json:"omitted"`
	Orphan      bool   `json:"orphan"`
	AnchorID    int64  `json:"anchor_id,omitempty"`
	AnchorTitle string `json:"anchor_title,omitempty"`
	Depth       int    `json:"depth"`
	Position    int    `json:"position"`
}

// Service coordinates store, settings and builder operations.
type Service struct {
	db       *store.DB
	settings *settings.File
	builder  *hierarchy.Builder
	notifier Notifier
	logger   *slog.Logger
}

// New creates a service. notifier may be nil.
func New(db *store.DB, file *settings.File, builder *hierarchy.Builder, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, settings: file, builder: builder, notifier: notifier, logger: logger}
}

// Assemble returns the whole listing.
func (s *Service) Assemble(ctx context.Context) ([]hierarchy.Node, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, cfg)
}

func (s *Service) assemble(ctx context.Context, cfg models.Settings) ([]hierarchy.Node, error) {
	nodes, err := s.builder.AssembleWith(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []hierarchy.Node{}
	}
	return nodes, nil
}

// Hierarchy returns one page of the listing, sized by the per_page setting.
// Listing and page size come from one settings snapshot.
func (s *Service) Hierarchy(ctx context.Context, page int) (*HierarchyPage, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := s.assemble(ctx, cfg)
	if err != nil {
		return nil, err
	}
	paged, meta := Paginate(nodes, page, cfg.PerPage)
	return &HierarchyPage{Nodes: paged, Meta: meta}, nil
}

// ContentTypes lists the registered content types with their settings.
func (s *Service) ContentTypes(ctx context.Context) ([]settings.TypeView, error) {
	types, err := s.db.ListContentTypes(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Views(cfg, types), nil
}

// Settings returns the settings in effect and their checksum.
func (s *Service) Settings(_ context.Context) (models.Settings, string) {
	return s.settings.Snapshot()
}

// UpdateSettings sanitizes and saves cfg. ifMatch, when set, must match the
// current checksum (apperr.ErrConflict otherwise).
func (s *Service) UpdateSettings(ctx context.Context, cfg models.Settings, ifMatch string) (models.Settings, string, error) {
	types, err := s.db.ListContentTypes(ctx)
	if err != nil {
		return models.Settings{}, "", err
	}
	cfg = settings.Sanitize(cfg, types)
	sum, err := s.settings.Save(cfg, ifMatch)
	if err != nil {
		return models.Settings{}, "", err
	}
	s.logger.Info("settings updated", slog.String("settings", settings.String(cfg)))
	s.notify(EventSettingsUpdated, s.settings.Path())
	saved, _ := s.settings.Snapshot()
	return saved, sum, nil
}

// Import loads a YAML site snapshot. It reports whether the stored site
// changed; parse and validation failures wrap apperr.ErrInvalid.
func (s *Service) Import(ctx context.Context, data []byte) (bool, error) {
	if len(data) == 0 {
		return false, fmt.Errorf("%w: empty snapshot", apperr.ErrInvalid)
	}
	changed, err := s.db.LoadFixture(ctx, data)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("site snapshot imported", slog.Int("bytes", len(data)))
		s.notify(EventContentImported, "")
	}
	return changed, nil
}

// Place reports where the content type name lands in the listing.
func (s *Service) Place(ctx context.Context, name string) (*Placement, error) {
	t, err := s.db.ContentType(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Name == models.PageType {
		return nil, apperr.ErrNotFound
	}
	p := &Placement{Type: t.Name, Label: t.DisplayLabel(), Position: -1}

	nodes, err := s.Assemble(ctx)
	if err != nil {
		return nil, err
	}
	titles := make(map[int64]string)
	for _, n := range nodes {
		if n.Kind == hierarchy.KindPage {
			titles[n.ID] = n.Title
		}
	}
	for i, n := range nodes {
		if n.Kind != hierarchy.KindSection || n.Type != name {
			continue
		}
		p.setAnchor(n, titles)
		p.Depth, p.Position = n.Depth, i
		return p, nil
	}
	p.Omitted = true
	return p, nil
}

// setAnchor fills the anchor fields from a section node.
func (p *Placement) setAnchor(n hierarchy.Node, titles map[int64]string) {
	if n.Parent.IsRoot() {
		p.Orphan = true
		return
	}
	p.AnchorID = n.Parent.ID
	p.AnchorTitle = titles[n.Parent.ID]
	if p.AnchorTitle == "" && n.Type == models.PostsType {
		// The posts-index page is not listed; the section carries its title.
		p.AnchorTitle = n.Title
	}
}

func (s *Service) notify(kind, subject string) {
	if s.notifier != nil {
		s.notifier.PublishChange(kind, subject)
	}
}
