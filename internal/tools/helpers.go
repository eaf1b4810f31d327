// Package tools implements the MCP tool handlers for planning documents.
//
// Each tool is a struct holding its dependencies with a Definition method
// returning the schema and a Handle method processing the call. Every
// result is a JSON object with a success flag; domain failures are
// reported in that object and never returned as Go errors.
package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/config"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/journal"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/HendryAvila/planmcp/internal/session"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

var timeNow = time.Now

// Deps are shared by every tool. Journal and Metrics may be nil.
type Deps struct {
	Renderer templates.Renderer
	Journal  *journal.Journal
	Sessions session.Store
	Metrics  *metrics.Metrics
	Log      zerolog.Logger

	// Root is the configured project root. Empty means discover it from
	// the working directory.
	Root       string
	Author     string
	Retention  backup.Retention
	SessionTTL time.Duration
}

// projectRoot resolves the project a call operates on: the projectPath
// argument, then the configured root, then the nearest ancestor of the
// working directory that looks like a project, then the working directory.
func (d *Deps) projectRoot(req mcp.CallToolRequest) (string, error) {
	if p := strings.TrimSpace(req.GetString("projectPath", "")); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolving projectPath: %w", err)
		}
		return abs, nil
	}
	if d.Root != "" {
		return d.Root, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindProjectRoot(dir), nil
}

// workspace is the per-call view of one project.
type workspace struct {
	store   *docstore.FileStore
	backups *backup.Manager
}

func (d *Deps) workspace(req mcp.CallToolRequest) (*workspace, error) {
	root, err := d.projectRoot(req)
	if err != nil {
		return nil, err
	}
	return d.workspaceAt(root), nil
}

func (d *Deps) workspaceAt(root string) *workspace {
	store := docstore.New(root)
	mgr := backup.NewManager(store, d.Log, d.Metrics)
	mgr.SetRetention(d.Retention)
	return &workspace{store: store, backups: mgr}
}

func (d *Deps) author(req mcp.CallToolRequest) string {
	if a := strings.TrimSpace(req.GetString("author", "")); a != "" {
		return a
	}
	return d.Author
}

// outcome opens every tool result.
type outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func succeeded() outcome { return outcome{Success: true} }

func failedWith(err error) outcome { return outcome{Error: err.Error()} }

// respond encodes v as the call result. A failed outcome marks the result
// as an error so hosts can tell without parsing the text.
func respond(o outcome, v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	if !o.Success {
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// failure is the result shape for tools without their own result type.
type failure struct {
	outcome
	Warnings []string `json:"warnings"`
}

func fail(err error, warnings ...string) (*mcp.CallToolResult, error) {
	if warnings == nil {
		warnings = []string{}
	}
	f := failure{outcome: failedWith(err), Warnings: warnings}
	return respond(f.outcome, f)
}

// checkIDs rejects component and goal ids that are not folder slugs, so
// values such as ".." cannot point outside their folder. Empty ids are
// left to the caller.
func checkIDs(ids ...string) error {
	for i := 0; i+1 < len(ids); i += 2 {
		field, id := ids[i], ids[i+1]
		if id != "" && !document.IsSlug(id) {
			return fmt.Errorf("%s %q must be a slug such as %q", field, id, document.Slugify(id))
		}
	}
	return nil
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// versionArg reads a version given either as a number or a string.
func versionArg(req mcp.CallToolRequest, key string) (float64, bool) {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return v, true
	case string:
		if f, err := version.ParseVersion(v); err == nil {
			return f, true
		}
	}
	return 0, false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
