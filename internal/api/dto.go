package api

import (
	"github.com/starford/hierarchy/internal/hierarchy"
	"github.com/starford/hierarchy/internal/models"
	"github.com/starford/hierarchy/internal/service"
	"github.com/starford/hierarchy/internal/settings"
)

// NodeResponse is one row of the listing as rendered for clients.
type NodeResponse struct {
	hierarchy.Node
	SourceID    string `json:"source_id" example:"42" validate:"required"`
	PaddedTitle string `json:"padded_title" example:"— Contact" validate:"required"`
}

// HierarchyResponse wraps one page of the listing.
type HierarchyResponse struct {
	Nodes []NodeResponse `json:"nodes" validate:"required"`
	Meta  service.Meta   `json:"meta" validate:"required"`
}

// ContentTypeListResponse wraps the content type listing.
type ContentTypeListResponse struct {
	ContentTypes []settings.TypeView `json:"content_types" validate:"required"`
}

// Placement is the anchor report for one content type (aliased from the domain layer).
type Placement = service.Placement

// SettingsRequest is the request body for saving settings.
type SettingsRequest = models.Settings

// SettingsResponse carries the settings in effect with their checksum.
type SettingsResponse struct {
	Settings models.Settings `json:"settings" validate:"required"`
	Checksum string          `json:"checksum" example:"ba7816bf..." validate:"required"`
}

// ImportResponse reports whether an import changed the stored site.
type ImportResponse struct {
	Changed bool `json:"changed" example:"true"`
}

func toHierarchyResponse(p *service.HierarchyPage) HierarchyResponse {
	nodes := make([]NodeResponse, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		nodes = append(nodes, NodeResponse{Node: n, SourceID: n.SourceID(), PaddedTitle: n.PaddedTitle()})
	}
	return HierarchyResponse{Nodes: nodes, Meta: p.Meta}
}
