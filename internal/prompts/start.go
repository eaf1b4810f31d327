// Package prompts implements MCP prompt handlers for planning workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the planmcp-start MCP prompt.
// It guides the AI to set up the planning hierarchy for a project.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("planmcp-start",
		mcp.WithPromptDescription(
			"Set up versioned planning documents for a project: overview, roadmap, "+
				"a first component and its first major goal.",
		),
		mcp.WithArgument("project_name",
			mcp.ArgumentDescription("Name of your project"),
		),
		mcp.WithArgument("component",
			mcp.ArgumentDescription("Name of the first component. If omitted you will be asked."),
		),
	)
}

// Handle processes the planmcp-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectName := "my-project"
	component := ""
	if args := req.Params.Arguments; args != nil {
		if name, ok := args["project_name"]; ok && name != "" {
			projectName = name
		}
		component = args["component"]
	}

	componentStep := "3. Ask me for the first component (a name and its purpose), then run `create_component`\n"
	if component != "" {
		componentStep = fmt.Sprintf("3. Run `create_component` with name='%s' and ask me for its purpose first\n", component)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start planning: %s", projectName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to plan the project '%s' with versioned planning documents.\n\n"+
						"Please:\n"+
						"1. Ask me for a short description and vision of the project\n"+
						"2. Run `init_project` with name='%s' and what I told you\n"+
						"%s"+
						"4. Run `start_goal_intake` for that component and walk me through each question, "+
						"passing my answers to `answer_goal_intake`\n"+
						"5. Finish with `generate_progress_dashboard` so I can see where things stand",
					projectName, projectName, componentStep,
				)),
			},
		},
	}, nil
}
