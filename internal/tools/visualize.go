package tools

import (
	"context"

	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/HendryAvila/planmcp/internal/visualize"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── generate_hierarchy_tree ────────────────────────────────────────────────

// HierarchyTreeTool draws the project, component, goal and sub-goal tree.
type HierarchyTreeTool struct {
	deps *Deps
}

// NewHierarchyTreeTool creates a HierarchyTreeTool.
func NewHierarchyTreeTool(deps *Deps) *HierarchyTreeTool {
	return &HierarchyTreeTool{deps: deps}
}

var treeFormats = []visualize.Format{visualize.FormatASCII, visualize.FormatMarkdown, visualize.FormatJSON}

// Definition returns the MCP tool definition for registration.
func (t *HierarchyTreeTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_hierarchy_tree",
		mcp.WithDescription(
			"Draw the planning hierarchy: project, components, major goals and sub-goals, "+
				"each with its status and progress.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("outputFormat",
			mcp.Description("ascii, markdown or json. Defaults to ascii."),
			mcp.Enum(visualize.FormatNames(treeFormats...)...),
		),
		mcp.WithNumber("maxDepth",
			mcp.Description("Levels below the project: 1 components, 2 goals, 3 sub-goals. Defaults to 7 (everything)."),
			mcp.DefaultNumber(visualize.DefaultTreeDepth),
		),
		mcp.WithBoolean("showProgress", mcp.Description("Show progress percentages"), mcp.DefaultBool(true)),
		mcp.WithString("filterStatus",
			mcp.Description("all, active (not completed), completed, or an exact goal status such as Blocked. Defaults to all."),
		),
	)
}

type treeResponse struct {
	outcome
	Format   visualize.Format `json:"format"`
	Tree     string           `json:"tree"`
	Root     *visualize.Node  `json:"root"`
	Warnings []string         `json:"warnings"`
}

// Handle processes the generate_hierarchy_tree tool call.
func (t *HierarchyTreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := visualize.ParseFormat(req.GetString("outputFormat", ""), treeFormats...)
	if err != nil {
		return fail(err)
	}
	p, err := loadProject(t.deps, req)
	if err != nil {
		return fail(err)
	}

	showProgress := boolArg(req, "showProgress", true)
	root := visualize.Tree(p, visualize.TreeOptions{
		MaxDepth:     intArg(req, "maxDepth", visualize.DefaultTreeDepth),
		ShowProgress: showProgress,
		FilterStatus: req.GetString("filterStatus", visualize.FilterAll),
	})
	drawn, err := visualize.RenderTree(root, format, showProgress)
	if err != nil {
		return fail(err)
	}

	resp := treeResponse{outcome: succeeded(), Format: format, Tree: drawn, Root: root, Warnings: p.Warnings}
	return respond(resp.outcome, resp)
}

// loadProject reads the whole hierarchy of the call's project.
func loadProject(d *Deps, req mcp.CallToolRequest) (*project.Project, error) {
	ws, err := d.workspace(req)
	if err != nil {
		return nil, err
	}
	return project.Load(ws.store)
}

// ─── generate_roadmap_timeline ──────────────────────────────────────────────

// RoadmapTimelineTool draws goals on a timeline.
type RoadmapTimelineTool struct {
	deps *Deps
}

// NewRoadmapTimelineTool creates a RoadmapTimelineTool.
func NewRoadmapTimelineTool(deps *Deps) *RoadmapTimelineTool {
	return &RoadmapTimelineTool{deps: deps}
}

var timelineFormats = []visualize.Format{visualize.FormatMermaid, visualize.FormatMarkdown, visualize.FormatJSON}

// Definition returns the MCP tool definition for registration.
func (t *RoadmapTimelineTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_roadmap_timeline",
		mcp.WithDescription(
			"Place every major goal on a timeline from its first history date to its completion. "+
				"Completed goals end on their Last Updated date; open goals get a projected end from "+
				"their tier (Now 4 weeks, Next 12, Later 26, Someday 52) scaled by the work left.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("outputFormat",
			mcp.Description("mermaid (gantt chart), markdown or json. Defaults to mermaid."),
			mcp.Enum(visualize.FormatNames(timelineFormats...)...),
		),
		mcp.WithString("groupBy",
			mcp.Description("Lane per component, tier or status. Defaults to component."),
			mcp.Enum(visualize.GroupByComponent, visualize.GroupByTier, visualize.GroupByStatus),
		),
		mcp.WithBoolean("showMilestones", mcp.Description("Add a milestone at the end of each lane"), mcp.DefaultBool(true)),
		mcp.WithString("timeRange",
			mcp.Description("Keep goals overlapping today plus or minus a month, quarter or year. Defaults to all."),
			mcp.Enum(visualize.RangeAll, visualize.RangeMonth, visualize.RangeQuarter, visualize.RangeYear),
		),
	)
}

type timelineResponse struct {
	outcome
	Format   visualize.Format        `json:"format"`
	Timeline string                  `json:"timeline"`
	View     *visualize.TimelineView `json:"view"`
	Warnings []string                `json:"warnings"`
}

// Handle processes the generate_roadmap_timeline tool call.
func (t *RoadmapTimelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := visualize.ParseFormat(req.GetString("outputFormat", ""), timelineFormats...)
	if err != nil {
		return fail(err)
	}
	p, err := loadProject(t.deps, req)
	if err != nil {
		return fail(err)
	}

	view, err := visualize.Timeline(p, visualize.TimelineOptions{
		GroupBy:        req.GetString("groupBy", visualize.GroupByComponent),
		TimeRange:      req.GetString("timeRange", visualize.RangeAll),
		ShowMilestones: boolArg(req, "showMilestones", true),
		Now:            timeNow(),
	})
	if err != nil {
		return fail(err)
	}
	drawn, err := visualize.RenderTimeline(view, format)
	if err != nil {
		return fail(err)
	}

	resp := timelineResponse{outcome: succeeded(), Format: format, Timeline: drawn, View: view, Warnings: p.Warnings}
	return respond(resp.outcome, resp)
}

// ─── generate_dependency_graph ──────────────────────────────────────────────

// DependencyGraphTool draws the dependencies between goals.
type DependencyGraphTool struct {
	deps *Deps
}

// NewDependencyGraphTool creates a DependencyGraphTool.
func NewDependencyGraphTool(deps *Deps) *DependencyGraphTool {
	return &DependencyGraphTool{deps: deps}
}

var graphFormats = []visualize.Format{visualize.FormatMermaid, visualize.FormatASCII, visualize.FormatJSON}

// Definition returns the MCP tool definition for registration.
func (t *DependencyGraphTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_dependency_graph",
		mcp.WithDescription(
			"Draw the dependencies between major goals, read from each goal's Dependencies field "+
				"(\"001-login\" within the component, \"auth/001-login\" across components). "+
				"Reports cycles, unknown references and the critical path: the chain with the most work left.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("outputFormat",
			mcp.Description("mermaid, ascii or json. Defaults to mermaid."),
			mcp.Enum(visualize.FormatNames(graphFormats...)...),
		),
		mcp.WithString("scope",
			mcp.Description("all, or a component id to show its goals plus their direct dependencies and dependents. Defaults to all."),
		),
		mcp.WithBoolean("showCriticalPath", mcp.Description("Highlight the critical path"), mcp.DefaultBool(true)),
	)
}

type graphResponse struct {
	outcome
	Format   visualize.Format     `json:"format"`
	Graph    string               `json:"graph"`
	View     *visualize.GraphView `json:"view"`
	Warnings []string             `json:"warnings"`
}

// Handle processes the generate_dependency_graph tool call.
func (t *DependencyGraphTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := visualize.ParseFormat(req.GetString("outputFormat", ""), graphFormats...)
	if err != nil {
		return fail(err)
	}
	scope := req.GetString("scope", "all")
	if scope == "all" {
		scope = ""
	}
	if err := checkIDs("scope", scope); err != nil {
		return fail(err)
	}
	p, err := loadProject(t.deps, req)
	if err != nil {
		return fail(err)
	}

	view, err := visualize.Graph(p, visualize.GraphOptions{
		ComponentID:      scope,
		ShowCriticalPath: boolArg(req, "showCriticalPath", true),
	})
	if err != nil {
		return fail(err)
	}
	drawn, err := visualize.RenderGraph(view, format)
	if err != nil {
		return fail(err)
	}

	warnings := append(append([]string{}, p.Warnings...), view.Warnings...)
	resp := graphResponse{outcome: succeeded(), Format: format, Graph: drawn, View: view, Warnings: warnings}
	return respond(resp.outcome, resp)
}
