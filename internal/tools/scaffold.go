package tools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/HendryAvila/planmcp/internal/cascade"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/mark3labs/mcp-go/mcp"
)

const dateLayout = "2006-01-02"

var (
	priorities = []string{"Critical", "High", "Medium", "Low"}
	tiers      = []string{"Now", "Next", "Later", "Someday"}
)

// placeholder keeps otherwise empty folders in the hierarchy.
const placeholder = ".gitkeep"

// --- init_project ---

// InitProjectTool creates the planning hierarchy.
type InitProjectTool struct {
	deps *Deps
}

// NewInitProjectTool creates an InitProjectTool.
func NewInitProjectTool(deps *Deps) *InitProjectTool {
	return &InitProjectTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *InitProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("init_project",
		mcp.WithDescription(
			"Create the planning folder hierarchy with a PROJECT-OVERVIEW.md and ROADMAP.md at version 1.0. "+
				"Existing documents are left untouched. This is usually the first call for a new project.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("description", mcp.Description("What the project is and who it serves")),
		mcp.WithString("vision", mcp.Description("Where the project should be when it succeeds")),
		mcp.WithString("author", mcp.Description("Author for the initial history rows")),
	)
}

type initResponse struct {
	outcome
	ProjectRoot string   `json:"projectRoot"`
	Created     []string `json:"created"`
	Skipped     []string `json:"skipped"`
	Warnings    []string `json:"warnings"`
}

// Handle processes the init_project tool call.
func (t *InitProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return fail(errors.New("name is required"))
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	resp := initResponse{ProjectRoot: ws.store.Root(), Created: []string{}, Skipped: []string{}, Warnings: []string{}}
	date := timeNow().Format(dateLayout)
	author := t.deps.author(req)

	docs := []struct {
		path, tmpl string
		data       any
	}{
		{document.ProjectOverviewPath, templates.ProjectOverview, templates.ProjectOverviewData{
			Name:        name,
			Description: req.GetString("description", ""),
			Vision:      req.GetString("vision", ""),
			Date:        date,
			Author:      author,
		}},
		{document.RoadmapPath, templates.Roadmap, templates.RoadmapData{Name: name, Date: date, Author: author}},
	}
	for _, d := range docs {
		created, err := t.writeNew(ws.store, d.path, d.tmpl, d.data)
		if err != nil {
			return fail(err, resp.Warnings...)
		}
		if created {
			resp.Created = append(resp.Created, d.path)
		} else {
			resp.Skipped = append(resp.Skipped, d.path)
			resp.Warnings = append(resp.Warnings, d.path+" already exists and was left untouched")
		}
	}
	for _, dir := range []string{document.ComponentsDir, document.ArchiveDir} {
		keep := path.Join(dir, placeholder)
		if ok, _ := ws.store.Exists(keep); ok {
			continue
		}
		if err := ws.store.Write(keep, ""); err != nil {
			return fail(err, resp.Warnings...)
		}
		resp.Created = append(resp.Created, dir+"/")
	}

	t.deps.Log.Info().Str("root", ws.store.Root()).Int("created", len(resp.Created)).Msg("project initialized")
	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}

func (t *InitProjectTool) writeNew(store docstore.Store, p, tmpl string, data any) (bool, error) {
	exists, err := store.Exists(p)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	content, err := t.deps.Renderer.Render(tmpl, data)
	if err != nil {
		return false, err
	}
	return true, store.Write(p, content)
}

// --- create_component ---

// CreateComponentTool writes a new component OVERVIEW.md.
type CreateComponentTool struct {
	deps *Deps
}

// NewCreateComponentTool creates a CreateComponentTool.
func NewCreateComponentTool(deps *Deps) *CreateComponentTool {
	return &CreateComponentTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateComponentTool) Definition() mcp.Tool {
	return mcp.NewTool("create_component",
		mcp.WithDescription(
			"Create a component under 02-goals-and-roadmap/components/<id>/OVERVIEW.md at version 1.0. "+
				"The id defaults to a slug of the name. Fails if the component already exists.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
		mcp.WithString("componentId", mcp.Description("Folder name. Defaults to a slug of the name.")),
		mcp.WithString("purpose", mcp.Description("Why the component exists")),
		mcp.WithString("scope", mcp.Description("What is in and out of scope")),
		mcp.WithString("status", mcp.Description("Defaults to Planning")),
		mcp.WithString("timeline", mcp.Description("Target dates or quarters")),
		mcp.WithString("owner", mcp.Description("Responsible person or team")),
		mcp.WithString("author", mcp.Description("Author for the initial history row")),
	)
}

type createdResponse struct {
	outcome
	ID           string   `json:"id"`
	DocumentPath string   `json:"documentPath"`
	Version      float64  `json:"version"`
	Warnings     []string `json:"warnings"`
}

// Handle processes the create_component tool call.
func (t *CreateComponentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return fail(errors.New("name is required"))
	}
	id := strings.TrimSpace(req.GetString("componentId", ""))
	if id == "" {
		id = document.Slugify(name)
	} else if err := checkIDs("componentId", id); err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	p := document.ComponentPath(id)
	if exists, err := ws.store.Exists(p); err != nil {
		return fail(err)
	} else if exists {
		return fail(fmt.Errorf("component %q already exists at %s", id, p))
	}

	resp := createdResponse{ID: id, DocumentPath: p, Version: 1.0, Warnings: []string{}}
	if ok, _ := ws.store.Exists(document.ProjectOverviewPath); !ok {
		resp.Warnings = append(resp.Warnings, "Project is not initialized: run init_project to create the overview and roadmap")
	}

	content, err := t.deps.Renderer.Render(templates.Component, templates.ComponentData{
		ID:       id,
		Name:     name,
		Purpose:  req.GetString("purpose", ""),
		Scope:    req.GetString("scope", ""),
		Status:   req.GetString("status", ""),
		Timeline: req.GetString("timeline", ""),
		Owner:    req.GetString("owner", ""),
		Date:     timeNow().Format(dateLayout),
		Author:   t.deps.author(req),
	})
	if err != nil {
		return fail(err)
	}
	if err := ws.store.Write(p, content); err != nil {
		return fail(err)
	}

	t.deps.Log.Info().Str("component", id).Msg("component created")
	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}

// --- create_major_goal ---

// goalInput is what a new goal is built from.
type goalInput struct {
	ComponentID  string
	Name         string
	Description  string
	Status       string
	Priority     string
	Tier         string
	Owner        string
	Dependencies []string
	Author       string
}

// createGoal writes a new goal status document with the next free
// NNN-slug id under the component.
func createGoal(ws *workspace, r templates.Renderer, in goalInput) (id, p string, err error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", "", errors.New("name is required")
	}
	if in.Priority, err = option("priority", in.Priority, priorities); err != nil {
		return "", "", err
	}
	if in.Tier, err = option("tier", in.Tier, tiers); err != nil {
		return "", "", err
	}

	compPath := document.ComponentPath(in.ComponentID)
	if exists, err := ws.store.Exists(compPath); err != nil {
		return "", "", err
	} else if !exists {
		return "", "", fmt.Errorf("%w: %s (expected %s)", cascade.ErrComponentNotFound, in.ComponentID, compPath)
	}

	id, err = nextGoalID(ws.store, in.ComponentID, in.Name)
	if err != nil {
		return "", "", err
	}
	p = document.GoalPath(in.ComponentID, id)
	content, err := r.Render(templates.Goal, templates.GoalData{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Component:    in.ComponentID,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		Tier:         in.Tier,
		Owner:        in.Owner,
		Dependencies: in.Dependencies,
		Date:         timeNow().Format(dateLayout),
		Author:       in.Author,
	})
	if err != nil {
		return "", "", err
	}
	if err := ws.store.Write(p, content); err != nil {
		return "", "", err
	}
	return id, p, nil
}

// nextGoalID numbers goals per component: 001-login, 002-sso, ...
func nextGoalID(store docstore.Store, componentID, name string) (string, error) {
	existing, err := store.Glob(document.GoalsGlob(document.ComponentDir(componentID)))
	if err != nil {
		return "", err
	}
	highest := 0
	for _, g := range existing {
		prefix, _, _ := strings.Cut(path.Base(path.Dir(g)), "-")
		if n, err := strconv.Atoi(prefix); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%03d-%s", highest+1, document.Slugify(name)), nil
}

// option matches value case-insensitively against options. Empty stays
// empty so the template default applies.
func option(field, value string, options []string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%s must be one of: %s", field, strings.Join(options, ", "))
}

// CreateMajorGoalTool writes a new goal under a component.
type CreateMajorGoalTool struct {
	deps *Deps
}

// NewCreateMajorGoalTool creates a CreateMajorGoalTool.
func NewCreateMajorGoalTool(deps *Deps) *CreateMajorGoalTool {
	return &CreateMajorGoalTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateMajorGoalTool) Definition() mcp.Tool {
	return mcp.NewTool("create_major_goal",
		mcp.WithDescription(
			"Create a major goal under a component as major-goals/<NNN-slug>/GOAL-STATUS.md at version 1.0. "+
				"For a guided conversation use start_goal_intake instead.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component folder name")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Goal name")),
		mcp.WithString("description", mcp.Description("What the goal should achieve")),
		mcp.WithString("status", mcp.Description("Defaults to Planning")),
		mcp.WithString("priority", mcp.Description("Defaults to Medium"), mcp.Enum(priorities...)),
		mcp.WithString("tier", mcp.Description("Defaults to Next"), mcp.Enum(tiers...)),
		mcp.WithString("owner", mcp.Description("Responsible person or team")),
		mcp.WithString("dependencies",
			mcp.Description("Comma-separated goals that must finish first: 001-login within the component, auth/001-login across components"),
		),
		mcp.WithString("author", mcp.Description("Author for the initial history row")),
	)
}

// Handle processes the create_major_goal tool call.
func (t *CreateMajorGoalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	componentID := strings.TrimSpace(req.GetString("componentId", ""))
	if componentID == "" {
		return fail(errors.New("componentId is required"))
	}
	if err := checkIDs("componentId", componentID); err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}
	id, p, err := createGoal(ws, t.deps.Renderer, goalInput{
		ComponentID:  componentID,
		Name:         req.GetString("name", ""),
		Description:  req.GetString("description", ""),
		Status:       req.GetString("status", ""),
		Priority:     req.GetString("priority", ""),
		Tier:         req.GetString("tier", ""),
		Owner:        req.GetString("owner", ""),
		Dependencies: document.ParseList(req.GetString("dependencies", "")),
		Author:       t.deps.author(req),
	})
	if err != nil {
		return fail(err)
	}

	t.deps.Log.Info().Str("component", componentID).Str("goal", id).Msg("goal created")
	resp := createdResponse{outcome: succeeded(), ID: id, DocumentPath: p, Version: 1.0, Warnings: []string{}}
	return respond(resp.outcome, resp)
}
