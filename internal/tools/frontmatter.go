package tools

import (
	"context"

	"github.com/HendryAvila/planmcp/internal/classify"
	"github.com/mark3labs/mcp-go/mcp"
)

// FrontmatterTool adds inferred frontmatter to markdown files lacking it.
type FrontmatterTool struct {
	deps *Deps
}

// NewFrontmatterTool creates a FrontmatterTool.
func NewFrontmatterTool(deps *Deps) *FrontmatterTool {
	return &FrontmatterTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *FrontmatterTool) Definition() mcp.Tool {
	return mcp.NewTool("add_document_frontmatter",
		mcp.WithDescription(
			"Add YAML frontmatter (type, project, category, tags, status, priority) to every markdown file "+
				"in the project that has none. Values are inferred from the file name and opening text. "+
				"node_modules, hidden folders and backup files are skipped.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("projectName", mcp.Description("Value for the project field. Defaults to the root folder name.")),
		mcp.WithBoolean("dryRun", mcp.Description("Report what would be added without writing"), mcp.DefaultBool(false)),
		mcp.WithNumber("limit", mcp.Description("Maximum files to process. 0 means no limit."), mcp.DefaultNumber(0)),
	)
}

type frontmatterResponse struct {
	outcome
	classify.Report
}

// Handle processes the add_document_frontmatter tool call.
func (t *FrontmatterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}
	report, err := classify.Run(ws.store, classify.Options{
		Project: req.GetString("projectName", ""),
		DryRun:  boolArg(req, "dryRun", false),
		Limit:   intArg(req, "limit", 0),
	})
	if err != nil {
		return fail(err)
	}
	t.deps.Log.Info().
		Int("processed", len(report.Processed)).
		Int("skipped", report.Skipped).
		Bool("dry_run", report.DryRun).
		Msg("frontmatter added")
	return respond(succeeded(), frontmatterResponse{outcome: succeeded(), Report: *report})
}
