package tools

import (
	"strings"
	"testing"
)

// seedWithDependency adds a Now-tier SSO goal that depends on Login.
func (f *fixture) seedWithDependency(t *testing.T) {
	t.Helper()
	f.seed(t)
	f.mustCall(t, NewCreateMajorGoalTool(f.deps), map[string]any{
		"componentId": "auth", "name": "SSO", "tier": "Now", "dependencies": "001-login",
	})
}

// --- generate_hierarchy_tree ---

func TestHierarchyTree(t *testing.T) {
	f := newFixture(t)
	f.seedWithDependency(t)

	out := f.mustCall(t, NewHierarchyTreeTool(f.deps), map[string]any{})
	if out["format"] != "ascii" {
		t.Errorf("format = %v, want ascii", out["format"])
	}
	tree, _ := out["tree"].(string)
	for _, want := range []string{
		"Shop 0%\n",
		"└── Auth [Active] 0%\n",
		"    ├── Login [Planning] 0%\n",
		"    └── SSO [Planning] 0%\n",
	} {
		if !strings.Contains(tree, want) {
			t.Errorf("tree lacks %q:\n%s", want, tree)
		}
	}

	out = f.mustCall(t, NewHierarchyTreeTool(f.deps), map[string]any{
		"filterStatus": "completed", "showProgress": false,
	})
	if out["tree"] != "Shop\n" {
		t.Errorf("filtered tree = %q, want only the project", out["tree"])
	}

	out = f.mustCall(t, NewHierarchyTreeTool(f.deps), map[string]any{"maxDepth": 1.0, "outputFormat": "markdown"})
	if tree, _ := out["tree"].(string); strings.Contains(tree, "Login") || !strings.Contains(tree, "**Auth**") {
		t.Errorf("depth 1 should stop at components:\n%s", tree)
	}

	if _, ok := f.call(t, NewHierarchyTreeTool(f.deps), map[string]any{"outputFormat": "mermaid"}); ok {
		t.Error("mermaid is not a tree format")
	}
}

// --- generate_roadmap_timeline ---

func TestRoadmapTimeline(t *testing.T) {
	f := newFixture(t)
	f.seedWithDependency(t)

	out := f.mustCall(t, NewRoadmapTimelineTool(f.deps), map[string]any{})
	chart, _ := out["timeline"].(string)
	for _, want := range []string{
		"gantt\n",
		"    section Auth\n",
		// Next tier: 12 weeks from the creation date.
		"    Login :g_auth_001_login, 2026-03-01, 2026-05-24\n",
		"    SSO :g_auth_002_sso, 2026-03-01, 2026-03-29\n",
		"    Auth complete :milestone, m1, 2026-05-24, 0d\n",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("timeline lacks %q:\n%s", want, chart)
		}
	}

	out = f.mustCall(t, NewRoadmapTimelineTool(f.deps), map[string]any{
		"groupBy": "tier", "showMilestones": false, "outputFormat": "markdown",
	})
	md, _ := out["timeline"].(string)
	if !strings.Contains(md, "## Now") || !strings.Contains(md, "## Next") || strings.Contains(md, "Milestone:") {
		t.Errorf("unexpected tier timeline:\n%s", md)
	}

	if _, ok := f.call(t, NewRoadmapTimelineTool(f.deps), map[string]any{"groupBy": "owner"}); ok {
		t.Error("unknown groupBy should fail")
	}
	if _, ok := f.call(t, NewRoadmapTimelineTool(f.deps), map[string]any{"timeRange": "decade"}); ok {
		t.Error("unknown timeRange should fail")
	}
}

// --- generate_dependency_graph ---

func TestDependencyGraph(t *testing.T) {
	f := newFixture(t)
	f.seedWithDependency(t)

	out := f.mustCall(t, NewDependencyGraphTool(f.deps), map[string]any{})
	graph, _ := out["graph"].(string)
	if !strings.Contains(graph, "graph TD\n") || !strings.Contains(graph, "g_auth_001_login ==> g_auth_002_sso") {
		t.Errorf("unexpected graph:\n%s", graph)
	}

	view, _ := out["view"].(map[string]any)
	if got := stringList(view["criticalPath"]); strings.Join(got, ",") != "auth/001-login,auth/002-sso" {
		t.Errorf("criticalPath = %v", got)
	}

	out = f.mustCall(t, NewDependencyGraphTool(f.deps), map[string]any{
		"outputFormat": "ascii", "scope": "auth", "showCriticalPath": false,
	})
	graph, _ = out["graph"].(string)
	if !strings.Contains(graph, "Dependency graph (auth): 2 goals, 1 dependency") {
		t.Errorf("unexpected ascii graph:\n%s", graph)
	}
	if strings.Contains(graph, "Critical path") {
		t.Error("critical path was turned off")
	}

	for _, scope := range []string{"ghost", "../auth"} {
		if _, ok := f.call(t, NewDependencyGraphTool(f.deps), map[string]any{"scope": scope}); ok {
			t.Errorf("scope %q should fail", scope)
		}
	}
}

func TestDependencyGraph_UnknownReferenceIsAWarning(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.mustCall(t, NewCreateMajorGoalTool(f.deps), map[string]any{
		"componentId": "auth", "name": "SSO", "dependencies": "billing/001-card",
	})

	out := f.mustCall(t, NewDependencyGraphTool(f.deps), map[string]any{"outputFormat": "json"})
	warnings := stringList(out["warnings"])
	if len(warnings) != 1 || !strings.Contains(warnings[0], `unknown goal "billing/001-card"`) {
		t.Errorf("warnings = %v", warnings)
	}
}

// --- suggest_next_steps ---

func TestNextSteps(t *testing.T) {
	f := newFixture(t)

	out := f.mustCall(t, NewNextStepsTool(f.deps), map[string]any{})
	suggestions, _ := out["suggestions"].([]any)
	if len(suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(suggestions))
	}
	first, _ := suggestions[0].(map[string]any)
	if first["tool"] != "init_project" {
		t.Errorf("an empty folder should start with init_project, got %v", first["tool"])
	}

	f.seed(t)
	out = f.mustCall(t, NewNextStepsTool(f.deps), map[string]any{"maxSuggestions": 3.0})
	suggestions, _ = out["suggestions"].([]any)
	first, _ = suggestions[0].(map[string]any)
	// Login is the only goal and sits in the Next tier.
	if first["action"] != "Promote a goal to the Now tier" {
		t.Errorf("action = %v", first["action"])
	}
	if first["reason"] == nil {
		t.Error("details are on by default")
	}

	out = f.mustCall(t, NewNextStepsTool(f.deps), map[string]any{"includeDetails": false})
	suggestions, _ = out["suggestions"].([]any)
	first, _ = suggestions[0].(map[string]any)
	if _, ok := first["reason"]; ok {
		t.Error("includeDetails=false should drop the reason")
	}
}

// --- generate_documentation ---

func TestDocumentation(t *testing.T) {
	f := newFixture(t)
	f.seedWithDependency(t)

	out := f.mustCall(t, NewDocumentationTool(f.deps), map[string]any{
		"detailLevel": "detailed", "includeMetrics": true, "writeFile": true,
	})
	if out["detailLevel"] != "detailed" {
		t.Errorf("detailLevel = %v", out["detailLevel"])
	}
	if out["writtenPath"] != DocumentationPath {
		t.Errorf("writtenPath = %v", out["writtenPath"])
	}
	md := f.read(t, DocumentationPath)
	for _, want := range []string{
		"# Shop: Project Documentation",
		"### Auth (v1.0)",
		"- **Login** [Planning] 0%, Next tier, Medium priority",
		"  Depends on: 001-login",
		"  - v1.0 (2026-03-01): Initial version",
		"**Health:** ",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("documentation lacks %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "_Describe") {
		t.Error("scaffold placeholders should not be copied into the documentation")
	}

	if _, ok := f.call(t, NewDocumentationTool(f.deps), map[string]any{"detailLevel": "verbose"}); ok {
		t.Error("unknown detailLevel should fail")
	}
	if _, ok := f.call(t, NewDocumentationTool(f.deps), map[string]any{"format": "html"}); ok {
		t.Error("unknown format should fail")
	}
}
