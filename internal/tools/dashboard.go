package tools

import (
	"context"

	"github.com/HendryAvila/planmcp/internal/dashboard"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/mark3labs/mcp-go/mcp"
)

// DashboardPath is where a written markdown dashboard is stored.
const DashboardPath = document.GoalsDir + "/PROGRESS-DASHBOARD.md"

// DashboardTool aggregates goal progress across the project.
type DashboardTool struct {
	deps *Deps
}

// NewDashboardTool creates a DashboardTool.
func NewDashboardTool(deps *Deps) *DashboardTool {
	return &DashboardTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_progress_dashboard",
		mcp.WithDescription(
			"Scan every major goal and report progress by status, tier and component, "+
				"including goals not updated in 30 days. Optionally writes the markdown dashboard "+
				"to "+DashboardPath+".",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("format",
			mcp.Description("markdown or json. Defaults to markdown."),
			mcp.Enum(string(dashboard.FormatMarkdown), string(dashboard.FormatJSON)),
		),
		mcp.WithBoolean("writeFile",
			mcp.Description("Also write the markdown dashboard into the project"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("includeVelocity",
			mcp.Description("Add completions per week over the last 28 days and the trend against the 28 days before"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("includeHealth",
			mcp.Description("Add a 0-100 health score with the issues that lowered it"),
			mcp.DefaultBool(true),
		),
	)
}

type dashboardResponse struct {
	outcome
	Format      dashboard.Format  `json:"format"`
	Dashboard   string            `json:"dashboard"`
	Report      *dashboard.Report `json:"report"`
	WrittenPath string            `json:"writtenPath,omitempty"`
	Warnings    []string          `json:"warnings"`
}

// Handle processes the generate_progress_dashboard tool call.
func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := dashboard.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	var opts []dashboard.Option
	if boolArg(req, "includeVelocity", true) {
		opts = append(opts, dashboard.WithVelocity())
	}
	if boolArg(req, "includeHealth", true) {
		opts = append(opts, dashboard.WithHealth())
	}
	report, err := dashboard.Generate(ws.store, timeNow(), opts...)
	if err != nil {
		return fail(err)
	}
	rendered, err := dashboard.Render(report, format, t.deps.Renderer)
	if err != nil {
		return fail(err)
	}

	resp := dashboardResponse{Format: format, Dashboard: rendered, Report: report, Warnings: report.Warnings}
	if boolArg(req, "writeFile", false) {
		md := rendered
		if format != dashboard.FormatMarkdown {
			if md, err = dashboard.Render(report, dashboard.FormatMarkdown, t.deps.Renderer); err != nil {
				return fail(err)
			}
		}
		if err := ws.store.Write(DashboardPath, md); err != nil {
			return fail(err)
		}
		resp.WrittenPath = DashboardPath
	}

	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}
