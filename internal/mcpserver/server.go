// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes hierarchy tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hierarchy/internal/apperr"
	"github.com/starford/hierarchy/internal/hierarchy"
	"github.com/starford/hierarchy/internal/service"
)

const settingsFormatURI = "hierarchy://settings-format"

// Server wraps the MCP server with hierarchy tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with all hierarchy tools registered.
func New(svc *service.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Hierarchy",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_hierarchy",
		mcp.WithDescription("Show the site's pages merged with its other content types as an indented listing."),
		mcp.WithNumber("page", mcp.Description("1-based listing page (default 1)")),
	), s.getHierarchy)

	s.mcp.AddTool(mcp.NewTool("list_content_types",
		mcp.WithDescription("List the registered content types with their hierarchy settings."),
	), s.listContentTypes)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the hierarchy settings in effect as JSON, with their checksum. "+
			"The field meanings are described by the hierarchy://settings-format resource."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("resolve_anchor",
		mcp.WithDescription("Report the page a content type is anchored under, or that it is listed at the root."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Content type name (e.g. post)")),
	), s.resolveAnchor)

	s.mcp.AddResource(
		mcp.NewResource(settingsFormatURI, "Hierarchy Settings Format",
			mcp.WithResourceDescription("Meaning of every hierarchy settings field."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSettingsFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	if page < 1 {
		return mcp.NewToolResultError("page must be a positive integer"), nil
	}
	res, err := s.svc.Hierarchy(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Nodes) == 0 {
		return mcp.NewToolResultText("no rows"), nil
	}
	var b strings.Builder
	for _, n := range res.Nodes {
		b.WriteString(describe(n))
		b.WriteByte('\n')
	}
	if res.Meta.TotalPages > 1 {
		fmt.Fprintf(&b, "page %d of %d (%d rows)\n", res.Meta.Page, res.Meta.TotalPages, res.Meta.Total)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func describe(n hierarchy.Node) string {
	switch n.Kind {
	case hierarchy.KindSection:
		return fmt.Sprintf("%s [%s section, %d entries]", n.PaddedTitle(), n.Type, n.Count)
	case hierarchy.KindEntry:
		return fmt.Sprintf("%s [%s #%d]", n.PaddedTitle(), n.Type, n.ID)
	default:
		return fmt.Sprintf("%s [page #%d]", n.PaddedTitle(), n.ID)
	}
}

func (s *Server) listContentTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.svc.ContentTypes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, sum := s.svc.Settings(ctx)
	out, _ := json.MarshalIndent(map[string]any{"settings": cfg, "checksum": sum}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveAnchor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Place(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown content type: %s", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch {
	case p.Omitted:
		return mcp.NewToolResultText(fmt.Sprintf("%s is omitted from the hierarchy", p.Label)), nil
	case p.Orphan:
		return mcp.NewToolResultText(fmt.Sprintf("%s is listed at the root (row %d)", p.Label, p.Position+1)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("%s is anchored under %q (page #%d, row %d, depth %d)",
			p.Label, p.AnchorTitle, p.AnchorID, p.Position+1, p.Depth)), nil
	}
}

func (s *Server) readSettingsFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      settingsFormatURI,
			MIMEType: "text/markdown",
			Text:     SettingsFormat,
		},
	}, nil
}
