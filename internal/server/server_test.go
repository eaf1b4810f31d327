package server

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/planmcp/internal/config"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

var allTools = []string{
	"init_project", "create_component", "create_major_goal",
	"start_goal_intake", "answer_goal_intake",
	"analyze_version_impact", "update_document_version", "update_component_version",
	"rollback_version", "get_version_history",
	"archive_goal", "generate_progress_dashboard", "add_document_frontmatter",
	"generate_hierarchy_tree", "generate_roadmap_timeline", "generate_dependency_graph",
	"suggest_next_steps", "generate_documentation",
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ProjectRoot = t.TempDir()
	cfg.DataDir = t.TempDir()
	cfg.SessionTTL = time.Minute
	return cfg
}

func listTools(t *testing.T, cfg config.Config) string {
	t.Helper()
	s, cleanup, err := New(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(b)
}

func TestNew_RegistersAllTools(t *testing.T) {
	out := listTools(t, testConfig(t))
	for _, name := range allTools {
		if !strings.Contains(out, `"name":"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestNew_RunsWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where the data directory should be.
	blocker := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.DataDir = filepath.Join(blocker, "nested")

	out := listTools(t, cfg)
	if !strings.Contains(out, `"name":"rollback_version"`) {
		t.Error("tools should still be registered when the database is unavailable")
	}
}

func TestInstrument(t *testing.T) {
	m := metrics.New()
	mw := instrument(zerolog.Nop(), m)

	call := func(name string, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)) {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		_, _ = mw(h)(context.Background(), req)
	}
	call("ok_tool", func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("{}"), nil
	})
	call("failing_tool", func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("{}"), nil
	})
	call("broken_tool", func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		tool, status string
	}{
		{"ok_tool", "ok"},
		{"failing_tool", "failed"},
		{"broken_tool", "error"},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues(tt.tool, tt.status)); got != 1 {
			t.Errorf("%s/%s = %v, want 1", tt.tool, tt.status, got)
		}
	}
}

func TestServerInstructions_MentionCoreTools(t *testing.T) {
	text := serverInstructions()
	for _, name := range []string{"update_document_version", "analyze_version_impact", "rollback_version", "start_goal_intake", "archive_goal"} {
		if !strings.Contains(text, name) {
			t.Errorf("instructions do not mention %s", name)
		}
	}
	for _, name := range []string{"suggest_next_steps", "generate_dependency_graph", "generate_documentation"} {
		if !strings.Contains(text, name) {
			t.Errorf("instructions do not mention %s", name)
		}
	}
	if !strings.Contains(text, "1.3 -> 3.0") {
		t.Error("instructions should show that a major bump from 1.3 gives 3.0")
	}
}
