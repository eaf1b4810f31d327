package tools

import (
	"context"

	"github.com/HendryAvila/planmcp/internal/advisor"
	"github.com/mark3labs/mcp-go/mcp"
)

// NextStepsTool recommends what to work on next.
type NextStepsTool struct {
	deps *Deps
}

// NewNextStepsTool creates a NextStepsTool.
func NewNextStepsTool(deps *Deps) *NextStepsTool {
	return &NextStepsTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *NextStepsTool) Definition() mcp.Tool {
	return mcp.NewTool("suggest_next_steps",
		mcp.WithDescription(
			"Suggest the next actions for the project, most pressing first: set up what is missing, "+
				"unblock goals, start ready Now-tier goals, refresh stale goals and archive finished ones. "+
				"Each suggestion names the tool that carries it out.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithBoolean("includeDetails",
			mcp.Description("Add the reason and suggested tool arguments to each suggestion"),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber("maxSuggestions",
			mcp.Description("Maximum suggestions to return. Defaults to 5."),
			mcp.DefaultNumber(advisor.DefaultMax),
		),
	)
}

type nextStepsResponse struct {
	outcome
	Suggestions []advisor.Suggestion `json:"suggestions"`
	Total       int                  `json:"total"`
	Warnings    []string             `json:"warnings"`
}

// Handle processes the suggest_next_steps tool call.
func (t *NextStepsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := loadProject(t.deps, req)
	if err != nil {
		return fail(err)
	}
	suggestions, total := advisor.Suggest(p, advisor.Options{
		Max:            intArg(req, "maxSuggestions", advisor.DefaultMax),
		IncludeDetails: boolArg(req, "includeDetails", true),
		Now:            timeNow(),
	})

	resp := nextStepsResponse{outcome: succeeded(), Suggestions: suggestions, Total: total, Warnings: p.Warnings}
	return respond(resp.outcome, resp)
}
