package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// promptText extracts the single user message of a prompt result.
func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	if len(result.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(result.Messages))
	}
	msg := result.Messages[0]
	if msg.Role != mcp.RoleUser {
		t.Errorf("role = %q, want user", msg.Role)
	}
	tc, ok := msg.Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", msg.Content)
	}
	return tc.Text
}

func TestStartPrompt_Definition(t *testing.T) {
	def := NewStartPrompt().Definition()
	if def.Name != "planmcp-start" {
		t.Errorf("name = %q", def.Name)
	}
	var args []string
	for _, a := range def.Arguments {
		args = append(args, a.Name)
	}
	if strings.Join(args, ",") != "project_name,component" {
		t.Errorf("arguments = %v", args)
	}
}

func TestStartPrompt_Handle(t *testing.T) {
	p := NewStartPrompt()
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"project_name": "Shop", "component": "Auth"}

	result, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Description != "Start planning: Shop" {
		t.Errorf("description = %q", result.Description)
	}
	text := promptText(t, result)
	for _, want := range []string{
		"init_project", "create_component", "start_goal_intake",
		"answer_goal_intake", "generate_progress_dashboard",
		"name='Shop'", "name='Auth'",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt does not mention %s", want)
		}
	}
}

func TestStartPrompt_Defaults(t *testing.T) {
	result, err := NewStartPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, result)
	if !strings.Contains(text, "name='my-project'") {
		t.Error("missing project name should fall back to my-project")
	}
	if !strings.Contains(text, "Ask me for the first component") {
		t.Error("missing component should be asked for")
	}
}

func TestStatusPrompt_Handle(t *testing.T) {
	p := NewStatusPrompt()
	if name := p.Definition().Name; name != "planmcp-status" {
		t.Errorf("name = %q", name)
	}

	result, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, result)
	for _, want := range []string{"generate_progress_dashboard", "format='json'", "archive_goal", "suggest_next_steps"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt does not mention %s", want)
		}
	}
}
