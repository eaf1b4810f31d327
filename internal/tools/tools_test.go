package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/journal"
	"github.com/HendryAvila/planmcp/internal/session"
	"github.com/HendryAvila/planmcp/internal/storage"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// --- Test helpers ---

type handler interface {
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type fixture struct {
	root string
	deps *Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("setup: renderer: %v", err)
	}
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("setup: storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		root: t.TempDir(),
		deps: &Deps{
			Renderer:   renderer,
			Journal:    journal.New(db),
			Sessions:   session.NewMemoryStore(),
			Log:        zerolog.Nop(),
			Author:     "tester",
			Retention:  backup.RetainDelete,
			SessionTTL: time.Hour,
		},
	}
}

// call invokes h with args plus the fixture's projectPath and decodes the
// JSON result.
func (f *fixture) call(t *testing.T, h handler, args map[string]any) (map[string]any, bool) {
	t.Helper()
	if _, ok := args["projectPath"]; !ok {
		args["projectPath"] = f.root
	}
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle returned a Go error: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &out); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, getResultText(result))
	}
	if ok, _ := out["success"].(bool); ok == isErrorResult(result) {
		t.Fatalf("success flag and IsError disagree: %s", getResultText(result))
	}
	return out, !isErrorResult(result)
}

func (f *fixture) mustCall(t *testing.T, h handler, args map[string]any) map[string]any {
	t.Helper()
	out, ok := f.call(t, h, args)
	if !ok {
		t.Fatalf("expected success, got error: %v", out["error"])
	}
	return out
}

func (f *fixture) read(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(p)))
	if err != nil {
		t.Fatalf("reading %s: %v", p, err)
	}
	return string(data)
}

// seed initializes the project with an auth component and one goal.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	f.mustCall(t, NewInitProjectTool(f.deps), map[string]any{"name": "Shop"})
	f.mustCall(t, NewCreateComponentTool(f.deps), map[string]any{"name": "Auth", "purpose": "Sign users in", "status": "Active"})
	f.mustCall(t, NewCreateMajorGoalTool(f.deps), map[string]any{"componentId": "auth", "name": "Login"})
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func stringList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		s, _ := r.(string)
		out = append(out, s)
	}
	return out
}

// --- init_project ---

func TestInitProject_CreatesHierarchy(t *testing.T) {
	f := newFixture(t)
	out := f.mustCall(t, NewInitProjectTool(f.deps), map[string]any{"name": "Shop", "description": "Sells things"})

	created := stringList(out["created"])
	if len(created) != 4 {
		t.Errorf("created = %v, want overview, roadmap and two folders", created)
	}
	overview := f.read(t, document.ProjectOverviewPath)
	if !strings.Contains(overview, "# Shop: Project Overview") || !strings.Contains(overview, "Sells things") {
		t.Errorf("unexpected overview:\n%s", overview)
	}
	if !strings.Contains(overview, "| 1.0 | 2026-03-01 | Initial version | tester |") {
		t.Errorf("overview lacks initial history row:\n%s", overview)
	}
	if _, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(document.ComponentsDir))); err != nil {
		t.Errorf("components folder missing: %v", err)
	}
}

func TestInitProject_LeavesExistingDocuments(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, NewInitProjectTool(f.deps), map[string]any{"name": "Shop"})
	before := f.read(t, document.RoadmapPath)

	out := f.mustCall(t, NewInitProjectTool(f.deps), map[string]any{"name": "Other"})
	if got := stringList(out["skipped"]); len(got) != 2 {
		t.Errorf("skipped = %v, want both documents", got)
	}
	if len(stringList(out["warnings"])) != 2 {
		t.Errorf("warnings = %v", out["warnings"])
	}
	if after := f.read(t, document.RoadmapPath); after != before {
		t.Error("existing roadmap was rewritten")
	}
}

func TestInitProject_RequiresName(t *testing.T) {
	f := newFixture(t)
	out, ok := f.call(t, NewInitProjectTool(f.deps), map[string]any{})
	if ok {
		t.Fatal("expected failure")
	}
	if out["error"] != "name is required" {
		t.Errorf("error = %v", out["error"])
	}
}

// --- create_component / create_major_goal ---

func TestCreateComponent(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, NewInitProjectTool(f.deps), map[string]any{"name": "Shop"})

	out := f.mustCall(t, NewCreateComponentTool(f.deps), map[string]any{"name": "Auth Service", "owner": "alice"})
	if out["id"] != "auth-service" {
		t.Errorf("id = %v, want auth-service", out["id"])
	}
	content := f.read(t, document.ComponentPath("auth-service"))
	c, err := document.ParseComponent("auth-service", content)
	if err != nil {
		t.Fatalf("created component does not parse: %v", err)
	}
	if c.Name != "Auth Service" || c.Owner != "alice" || c.Status != "Planning" {
		t.Errorf("component = %+v", c)
	}

	if _, ok := f.call(t, NewCreateComponentTool(f.deps), map[string]any{"name": "Auth Service"}); ok {
		t.Error("creating a duplicate component should fail")
	}
	if _, ok := f.call(t, NewCreateComponentTool(f.deps), map[string]any{"name": "X", "componentId": "Not A Slug"}); ok {
		t.Error("a non-slug componentId should fail")
	}
}

func TestCreateComponent_WarnsWithoutProject(t *testing.T) {
	f := newFixture(t)
	out := f.mustCall(t, NewCreateComponentTool(f.deps), map[string]any{"name": "Auth"})
	if len(stringList(out["warnings"])) != 1 {
		t.Errorf("warnings = %v, want one about init_project", out["warnings"])
	}
}

func TestCreateMajorGoal_NumbersGoals(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewCreateMajorGoalTool(f.deps), map[string]any{
		"componentId": "auth", "name": "Single Sign-On", "priority": "high", "tier": "now",
	})
	if out["id"] != "002-single-sign-on" {
		t.Errorf("id = %v, want 002-single-sign-on", out["id"])
	}
	g, err := document.ParseGoal(document.GoalPath("auth", "002-single-sign-on"), f.read(t, document.GoalPath("auth", "002-single-sign-on")))
	if err != nil {
		t.Fatalf("goal does not parse: %v", err)
	}
	if g.Priority != "High" || g.Tier != "Now" || g.Status != "Planning" || g.Component != "auth" {
		t.Errorf("goal = %+v", g)
	}
}

func TestCreateMajorGoal_Invalid(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing component", map[string]any{"componentId": "ghost", "name": "X"}, "component not found"},
		{"bad tier", map[string]any{"componentId": "auth", "name": "X", "tier": "Eventually"}, "tier must be one of"},
		{"no name", map[string]any{"componentId": "auth"}, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := f.call(t, NewCreateMajorGoalTool(f.deps), tt.args)
			if ok {
				t.Fatal("expected failure")
			}
			if msg, _ := out["error"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

// --- analyze_version_impact ---

func TestAnalyzeImpact_ProjectOverviewMarksComponentsHigh(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.mustCall(t, NewCreateComponentTool(f.deps), map[string]any{"name": "Billing"})

	out := f.mustCall(t, NewAnalyzeImpactTool(f.deps), map[string]any{
		"documentType":    "project-overview",
		"proposedChanges": "New vision",
		"changeType":      "major",
	})
	docs, _ := out["impactedDocuments"].([]any)
	if len(docs) != 3 {
		t.Fatalf("impacted = %d, want 2 components and the roadmap", len(docs))
	}
	for _, d := range docs {
		doc := d.(map[string]any)
		if doc["impactLevel"] != "high" || doc["requiresReview"] != true {
			t.Errorf("document %v not marked high/review", doc["documentPath"])
		}
	}
	if out["documentPath"] != document.ProjectOverviewPath {
		t.Errorf("documentPath = %v", out["documentPath"])
	}
}

func TestAnalyzeImpact_Invalid(t *testing.T) {
	f := newFixture(t)
	if _, ok := f.call(t, NewAnalyzeImpactTool(f.deps), map[string]any{"documentType": "chapter", "changeType": "minor"}); ok {
		t.Error("unknown documentType should fail")
	}
	if _, ok := f.call(t, NewAnalyzeImpactTool(f.deps), map[string]any{"documentType": "roadmap", "changeType": "huge"}); ok {
		t.Error("unknown changeType should fail")
	}
}

// --- update_component_version ---

func TestUpdateComponentVersion_InfersMinor(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewUpdateComponentVersionTool(f.deps), map[string]any{
		"componentId": "auth",
		"updates":     map[string]any{"status": "Blocked"},
	})
	if out["changeType"] != "minor" || out["newVersion"] != 1.1 {
		t.Errorf("changeType = %v newVersion = %v, want minor 1.1", out["changeType"], out["newVersion"])
	}
	cascaded, _ := out["cascadedUpdates"].([]any)
	if len(cascaded) != 1 {
		t.Errorf("cascadedUpdates = %v, want the one goal", cascaded)
	}
	if !strings.Contains(f.read(t, document.ComponentPath("auth")), "**Status:** Blocked") {
		t.Error("status was not written")
	}
}

func TestUpdateComponentVersion_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	before := f.read(t, document.ComponentPath("auth"))

	out := f.mustCall(t, NewUpdateComponentVersionTool(f.deps), map[string]any{
		"componentId": "auth",
		"updates":     map[string]any{"purpose": "Sign everyone in"},
		"dryRun":      true,
	})
	if out["newVersion"] != 2.0 {
		t.Errorf("newVersion = %v, want 2", out["newVersion"])
	}
	if after := f.read(t, document.ComponentPath("auth")); after != before {
		t.Error("dry run modified the component")
	}
}

func TestUpdateComponentVersion_MissingComponent(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	out, ok := f.call(t, NewUpdateComponentVersionTool(f.deps), map[string]any{
		"componentId": "ghost",
		"updates":     map[string]any{"status": "Blocked"},
	})
	if ok {
		t.Fatal("expected failure")
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "component not found") {
		t.Errorf("error = %q", msg)
	}
	if out["newVersion"] != 0.0 {
		t.Errorf("failure should carry zeroed fields, got newVersion %v", out["newVersion"])
	}
}

func TestUpdateComponentVersion_UpdatesMustBeObject(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	if _, ok := f.call(t, NewUpdateComponentVersionTool(f.deps), map[string]any{"componentId": "auth", "updates": "status=Blocked"}); ok {
		t.Error("string updates should fail")
	}
}

// --- update_document_version / get_version_history / rollback_version ---

func TestUpdateDocumentVersion(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewUpdateDocumentVersionTool(f.deps), map[string]any{
		"documentType":      "component",
		"componentId":       "auth",
		"changeType":        "patch",
		"changeDescription": "Typo",
	})
	if out["newVersion"] != 1.01 {
		t.Errorf("newVersion = %v, want 1.01", out["newVersion"])
	}
	if out["documentPath"] != document.ComponentPath("auth") {
		t.Errorf("documentPath = %v", out["documentPath"])
	}
	if !strings.Contains(f.read(t, document.ComponentPath("auth")), "| Typo | tester |") {
		t.Error("history row missing")
	}
}

func TestUpdateDocumentVersion_MissingDocument(t *testing.T) {
	f := newFixture(t)
	out, ok := f.call(t, NewUpdateDocumentVersionTool(f.deps), map[string]any{
		"documentPath":      document.ComponentPath("ghost"),
		"changeType":        "minor",
		"changeDescription": "x",
	})
	if ok {
		t.Fatal("expected failure")
	}
	if out["error"] == "" {
		t.Error("failure should carry an error message")
	}
}

func TestRollbackRestoresComponent(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	p := document.ComponentPath("auth")

	f.mustCall(t, NewUpdateComponentVersionTool(f.deps), map[string]any{
		"componentId": "auth",
		"updates":     map[string]any{"purpose": "Sign everyone in"},
	})

	hist := f.mustCall(t, NewVersionHistoryTool(f.deps), map[string]any{"documentPath": p})
	if hist["totalEntries"] != 2.0 {
		t.Errorf("totalEntries = %v, want 2", hist["totalEntries"])
	}
	if restorable, _ := hist["restorable"].([]any); len(restorable) != 2 {
		t.Errorf("restorable = %v, want both versions", restorable)
	}

	out := f.mustCall(t, NewRollbackVersionTool(f.deps), map[string]any{
		"documentPath":    p,
		"targetVersion":   1.0,
		"reason":          "Scope creep",
		"cascadeRollback": true,
	})
	if out["previousVersion"] != 2.0 || out["newVersion"] != 2.01 {
		t.Errorf("versions = %v -> %v, want 2 -> 2.01", out["previousVersion"], out["newVersion"])
	}
	content := f.read(t, p)
	if !strings.Contains(content, "**Purpose:** Sign users in") {
		t.Errorf("purpose was not restored:\n%s", content)
	}
	if !strings.Contains(content, "Rolled back to version 1.0: Scope creep") {
		t.Error("rollback history row missing")
	}
}

func TestRollback_UnknownVersionLeavesFile(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	p := document.ComponentPath("auth")
	before := f.read(t, p)

	out, ok := f.call(t, NewRollbackVersionTool(f.deps), map[string]any{"documentPath": p, "targetVersion": "9"})
	if ok {
		t.Fatal("expected failure")
	}
	if out["error"] != "Version 9.0 not found in history" {
		t.Errorf("error = %v", out["error"])
	}
	if f.read(t, p) != before {
		t.Error("file was modified")
	}
}

func TestRollback_RequiresTarget(t *testing.T) {
	f := newFixture(t)
	if _, ok := f.call(t, NewRollbackVersionTool(f.deps), map[string]any{"documentPath": "x.md"}); ok {
		t.Error("missing targetVersion should fail")
	}
}

// --- archive_goal ---

func TestArchiveGoal(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	args := func() map[string]any { return map[string]any{"componentId": "auth", "goalId": "001-login"} }

	out, ok := f.call(t, NewArchiveGoalTool(f.deps), args())
	if ok {
		t.Fatal("archiving an unfinished goal should fail without force")
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "not Completed") {
		t.Errorf("error = %q", msg)
	}

	forced := args()
	forced["force"] = true
	forced["reason"] = "Superseded"
	out = f.mustCall(t, NewArchiveGoalTool(f.deps), forced)

	dest := document.ArchivedGoalDir("auth", "001-login")
	if out["archivedPath"] != dest || out["newVersion"] != 1.01 {
		t.Errorf("archivedPath = %v newVersion = %v", out["archivedPath"], out["newVersion"])
	}
	content := f.read(t, dest+"/"+document.GoalFile)
	if !strings.Contains(content, "**Status:** Archived") || !strings.Contains(content, "Archived: Superseded") {
		t.Errorf("archived goal content:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(document.GoalDir("auth", "001-login")))); !os.IsNotExist(err) {
		t.Error("goal folder was not moved")
	}
}

func TestArchiveGoal_RefusesExistingDestination(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	dest := filepath.Join(f.root, filepath.FromSlash(document.ArchivedGoalDir("auth", "001-login")))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	before := f.read(t, document.GoalPath("auth", "001-login"))

	if _, ok := f.call(t, NewArchiveGoalTool(f.deps), map[string]any{"componentId": "auth", "goalId": "001-login", "force": true}); ok {
		t.Fatal("expected failure")
	}
	if f.read(t, document.GoalPath("auth", "001-login")) != before {
		t.Error("goal was modified")
	}
}

func TestArchiveGoal_RejectsNonSlugIDs(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	componentDir := filepath.Join(f.root, filepath.FromSlash(document.ComponentDir("auth")))

	for _, args := range []map[string]any{
		{"componentId": "auth", "goalId": ".."},
		{"componentId": "..", "goalId": "001-login"},
		{"componentId": "auth", "goalId": "../../auth"},
		{"componentId": "Auth", "goalId": "001-login"},
	} {
		args["force"] = true
		out, ok := f.call(t, NewArchiveGoalTool(f.deps), args)
		if ok {
			t.Errorf("archive_goal(%v) should fail", args)
			continue
		}
		if msg, _ := out["error"].(string); !strings.Contains(msg, "must be a slug") {
			t.Errorf("archive_goal(%v) error = %q", args, msg)
		}
	}
	if _, err := os.Stat(componentDir); err != nil {
		t.Errorf("component folder should be untouched: %v", err)
	}
	if content := f.read(t, document.GoalPath("auth", "001-login")); strings.Contains(content, "**Status:** Archived") {
		t.Error("goal should not have been archived")
	}
}

// --- generate_progress_dashboard ---

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewDashboardTool(f.deps), map[string]any{"format": "json", "writeFile": true})
	report, _ := out["report"].(map[string]any)
	if report["totalGoals"] != 1.0 {
		t.Errorf("totalGoals = %v, want 1", report["totalGoals"])
	}
	if out["writtenPath"] != DashboardPath {
		t.Errorf("writtenPath = %v", out["writtenPath"])
	}
	if md := f.read(t, DashboardPath); !strings.Contains(md, "| Auth |") {
		t.Errorf("written dashboard lacks the component:\n%s", md)
	}

	if _, ok := f.call(t, NewDashboardTool(f.deps), map[string]any{"format": "pdf"}); ok {
		t.Error("unknown format should fail")
	}
}

func TestDashboard_OptionalSections(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewDashboardTool(f.deps), map[string]any{"format": "json"})
	report, _ := out["report"].(map[string]any)
	health, _ := report["health"].(map[string]any)
	if health["status"] == nil || health["score"] == nil {
		t.Errorf("health should be on by default: %v", report["health"])
	}
	velocity, _ := report["velocity"].(map[string]any)
	if velocity["windowDays"] != 28.0 {
		t.Errorf("velocity should be on by default: %v", report["velocity"])
	}

	out = f.mustCall(t, NewDashboardTool(f.deps), map[string]any{
		"format": "json", "includeHealth": false, "includeVelocity": false,
	})
	report, _ = out["report"].(map[string]any)
	if _, ok := report["health"]; ok {
		t.Error("includeHealth=false should omit health")
	}
	if _, ok := report["velocity"]; ok {
		t.Error("includeVelocity=false should omit velocity")
	}
}

// --- add_document_frontmatter ---

func TestFrontmatter_DryRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	notes := filepath.Join(f.root, "docs", "setup-guide.md")
	if err := os.MkdirAll(filepath.Dir(notes), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(notes, []byte("# Setup\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := f.mustCall(t, NewFrontmatterTool(f.deps), map[string]any{"dryRun": true})
	processed, _ := out["processed"].([]any)
	if len(processed) != 1 {
		t.Fatalf("processed = %v, want only the notes file", processed)
	}
	if got := processed[0].(map[string]any)["path"]; got != "docs/setup-guide.md" {
		t.Errorf("processed path = %v", got)
	}
	if data, _ := os.ReadFile(notes); string(data) != "# Setup\n" {
		t.Error("dry run wrote the file")
	}

	f.mustCall(t, NewFrontmatterTool(f.deps), map[string]any{})
	if data, _ := os.ReadFile(notes); !strings.HasPrefix(string(data), "---\ntype: guide\n") {
		t.Errorf("frontmatter not added:\n%s", data)
	}
}

// --- start_goal_intake / answer_goal_intake ---

func TestGoalIntake(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out := f.mustCall(t, NewStartGoalIntakeTool(f.deps), map[string]any{"componentId": "auth"})
	id, _ := out["sessionId"].(string)
	if id == "" {
		t.Fatal("no session id")
	}
	if q, _ := out["question"].(map[string]any); q["key"] != "name" {
		t.Errorf("first question = %v", out["question"])
	}

	answer := NewAnswerGoalIntakeTool(f.deps)
	for _, a := range []string{"Password Reset", "Users can reset a forgotten password"} {
		f.mustCall(t, answer, map[string]any{"sessionId": id, "answer": a})
	}

	out, ok := f.call(t, answer, map[string]any{"sessionId": id, "answer": "urgent"})
	if ok {
		t.Fatal("invalid priority should fail")
	}
	if out["step"] != 3.0 {
		t.Errorf("step = %v, want the session to stay on question 3", out["step"])
	}

	for _, a := range []string{"high", "", ""} {
		out = f.mustCall(t, answer, map[string]any{"sessionId": id, "answer": a})
	}
	if out["completed"] != true || out["goalId"] != "002-password-reset" {
		t.Fatalf("final answer = %v", out)
	}
	g, err := document.ParseGoal("", f.read(t, document.GoalPath("auth", "002-password-reset")))
	if err != nil {
		t.Fatal(err)
	}
	if g.Priority != "High" || g.Tier != "Next" || g.Owner != "Unassigned" {
		t.Errorf("goal = %+v", g)
	}

	out, ok = f.call(t, answer, map[string]any{"sessionId": id, "answer": "again"})
	if ok {
		t.Fatal("a completed session should be gone")
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "session not found") {
		t.Errorf("error = %q", msg)
	}
}

func TestStartGoalIntake_UnknownComponent(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	if _, ok := f.call(t, NewStartGoalIntakeTool(f.deps), map[string]any{"componentId": "ghost"}); ok {
		t.Error("expected failure")
	}
}

// --- helpers ---

func TestLocateDocument(t *testing.T) {
	tests := []struct {
		args    map[string]any
		want    string
		wantErr bool
	}{
		{map[string]any{"documentPath": "a/b.md"}, "a/b.md", false},
		{map[string]any{"documentType": "roadmap"}, document.RoadmapPath, false},
		{map[string]any{"documentType": "project-overview"}, document.ProjectOverviewPath, false},
		{map[string]any{"documentType": "component", "componentId": "auth"}, document.ComponentPath("auth"), false},
		{map[string]any{"documentType": "major-goal", "componentId": "auth", "goalId": "001-x"}, document.GoalPath("auth", "001-x"), false},
		{map[string]any{"documentType": "major-goal", "componentId": "auth"}, "", true},
		{map[string]any{"documentType": "chapter"}, "", true},
		{map[string]any{}, "", true},
	}
	for _, tt := range tests {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = tt.args
		got, _, err := locateDocument(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("locateDocument(%v) err = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("locateDocument(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestProjectRoot_PrefersArgumentThenConfig(t *testing.T) {
	d := &Deps{Root: "/configured"}
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}
	if got, _ := d.projectRoot(req); got != "/configured" {
		t.Errorf("projectRoot = %q, want configured root", got)
	}
	dir := t.TempDir()
	req.Params.Arguments = map[string]any{"projectPath": dir}
	if got, _ := d.projectRoot(req); got != dir {
		t.Errorf("projectRoot = %q, want %q", got, dir)
	}
}
