// Package resources implements MCP resource handlers for planning documents.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (planmcp://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HendryAvila/planmcp/internal/dashboard"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	DashboardURI         = "planmcp://project/dashboard"
	DashboardMarkdownURI = "planmcp://project/dashboard.md"
)

var timeNow = time.Now

// Handler manages planning resource endpoints.
type Handler struct {
	root     string
	renderer templates.Renderer
}

// NewHandler creates a resource Handler. An empty root means the project
// is discovered from the working directory on each read.
func NewHandler(root string, renderer templates.Renderer) *Handler {
	return &Handler{root: root, renderer: renderer}
}

// DashboardResource returns the MCP resource definition for the progress
// report.
func (h *Handler) DashboardResource() mcp.Resource {
	return mcp.NewResource(
		DashboardURI,
		"Planning Progress",
		mcp.WithResourceDescription("Goal progress by status, tier and component, with stale goals"),
		mcp.WithMIMEType("application/json"),
	)
}

// DashboardMarkdownResource returns the MCP resource definition for the
// rendered dashboard.
func (h *Handler) DashboardMarkdownResource() mcp.Resource {
	return mcp.NewResource(
		DashboardMarkdownURI,
		"Planning Dashboard",
		mcp.WithResourceDescription("The progress dashboard rendered as markdown"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleDashboard returns the progress report as JSON.
func (h *Handler) HandleDashboard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := h.report()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling dashboard: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// HandleDashboardMarkdown returns the rendered dashboard.
func (h *Handler) HandleDashboardMarkdown(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := h.report()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	md, err := dashboard.Render(report, dashboard.FormatMarkdown, h.renderer)
	if err != nil {
		return nil, fmt.Errorf("rendering dashboard: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     md,
		},
	}, nil
}

func (h *Handler) report() (*dashboard.Report, error) {
	root, err := findRoot(h.root)
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}
	return dashboard.Generate(docstore.New(root), timeNow(), dashboard.WithVelocity(), dashboard.WithHealth())
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
