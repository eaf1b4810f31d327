package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the planmcp-status MCP prompt.
// It instructs the AI to summarize progress and pending reviews.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("planmcp-status",
		mcp.WithPromptDescription(
			"Summarize planning progress: goals by status and tier, stale goals, "+
				"and what to review next.",
		),
	)
}

// Handle processes the planmcp-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Planning Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `generate_progress_dashboard` with format='json' to check my planning status.\n\n" +
						"Then:\n" +
						"1. Show progress per component and tier in a compact table\n" +
						"2. Call out stale goals and suggest whether to update or archive them\n" +
						"3. Offer `archive_goal` for goals that are Completed\n" +
						"4. Run `suggest_next_steps` and tell me exactly what I should do next",
				),
			},
		},
	}, nil
}
