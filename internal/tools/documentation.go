package tools

import (
	"context"

	"github.com/HendryAvila/planmcp/internal/docgen"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/mark3labs/mcp-go/mcp"
)

// DocumentationPath is where written documentation is stored.
const DocumentationPath = document.PlanningDir + "/PROJECT-DOCUMENTATION.md"

// DocumentationTool compiles the planning documents into one document.
type DocumentationTool struct {
	deps *Deps
}

// NewDocumentationTool creates a DocumentationTool.
func NewDocumentationTool(deps *Deps) *DocumentationTool {
	return &DocumentationTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *DocumentationTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_documentation",
		mcp.WithDescription(
			"Compile the project overview, components and goals into one document. "+
				"brief lists components and goals; standard adds purposes, goal summaries and dependencies; "+
				"detailed adds sub-goals, the latest history rows and archived goals. "+
				"Optionally writes the markdown to "+DocumentationPath+".",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("format",
			mcp.Description("markdown or json. Defaults to markdown."),
			mcp.Enum(docgen.FormatMarkdown, docgen.FormatJSON),
		),
		mcp.WithString("detailLevel",
			mcp.Description("brief, standard or detailed. Defaults to standard."),
			mcp.Enum(docgen.LevelBrief, docgen.LevelStandard, docgen.LevelDetailed),
		),
		mcp.WithBoolean("includeMetrics",
			mcp.Description("Add the dashboard health score, velocity and stale goal count"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("writeFile",
			mcp.Description("Also write the markdown into the project"),
			mcp.DefaultBool(false),
		),
	)
}

type documentationResponse struct {
	outcome
	Format        string   `json:"format"`
	Level         string   `json:"detailLevel"`
	Documentation string   `json:"documentation"`
	WrittenPath   string   `json:"writtenPath,omitempty"`
	Warnings      []string `json:"warnings"`
}

// Handle processes the generate_documentation tool call.
func (t *DocumentationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := docgen.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return fail(err)
	}
	level, err := docgen.ParseLevel(req.GetString("detailLevel", ""))
	if err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	doc, err := docgen.Build(ws.store, docgen.Options{
		Level:          level,
		IncludeMetrics: boolArg(req, "includeMetrics", false),
		Now:            timeNow(),
	})
	if err != nil {
		return fail(err)
	}
	rendered, err := docgen.Render(doc, format, t.deps.Renderer)
	if err != nil {
		return fail(err)
	}

	resp := documentationResponse{Format: format, Level: level, Documentation: rendered, Warnings: doc.Warnings}
	if boolArg(req, "writeFile", false) {
		md := rendered
		if format != docgen.FormatMarkdown {
			if md, err = docgen.Render(doc, docgen.FormatMarkdown, t.deps.Renderer); err != nil {
				return fail(err)
			}
		}
		if err := ws.store.Write(DocumentationPath, md); err != nil {
			return fail(err)
		}
		resp.WrittenPath = DocumentationPath
	}

	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}
