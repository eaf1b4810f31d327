package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
)

// ArchivedStatus is written into a goal before it is moved to the archive.
const ArchivedStatus = "Archived"

// ArchiveGoalTool moves a finished goal out of its component.
type ArchiveGoalTool struct {
	deps *Deps
}

// NewArchiveGoalTool creates an ArchiveGoalTool.
func NewArchiveGoalTool(deps *Deps) *ArchiveGoalTool {
	return &ArchiveGoalTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *ArchiveGoalTool) Definition() mcp.Tool {
	return mcp.NewTool("archive_goal",
		mcp.WithDescription(
			"Archive a completed major goal: set its status to Archived, bump a patch version "+
				"and move its folder to 08-archive/goals/<componentId>--<goalId>. "+
				"Goals that are not Completed are refused unless force is set.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component folder name")),
		mcp.WithString("goalId", mcp.Required(), mcp.Description("Goal folder name, e.g. 001-login")),
		mcp.WithString("reason", mcp.Description("Added to the history row")),
		mcp.WithBoolean("force", mcp.Description("Archive even if the goal is not Completed"), mcp.DefaultBool(false)),
		mcp.WithString("author", mcp.Description("Author for the history row")),
	)
}

type archiveResponse struct {
	outcome
	ComponentID     string   `json:"componentId"`
	GoalID          string   `json:"goalId"`
	PreviousStatus  string   `json:"previousStatus"`
	PreviousVersion float64  `json:"previousVersion"`
	NewVersion      float64  `json:"newVersion"`
	ArchivedPath    string   `json:"archivedPath"`
	Warnings        []string `json:"warnings"`
}

// Handle processes the archive_goal tool call.
func (t *ArchiveGoalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	componentID := strings.TrimSpace(req.GetString("componentId", ""))
	goalID := strings.TrimSpace(req.GetString("goalId", ""))
	if componentID == "" || goalID == "" {
		return fail(errors.New("componentId and goalId are required"))
	}
	if err := checkIDs("componentId", componentID, "goalId", goalID); err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	p := document.GoalPath(componentID, goalID)
	content, err := ws.store.Read(p)
	if err != nil {
		return fail(err)
	}
	goal, err := document.ParseGoal(p, content)
	if err != nil {
		return fail(err)
	}
	if !goal.Completed() && !boolArg(req, "force", false) {
		return fail(fmt.Errorf("goal %s is %q, not Completed: set force to archive it anyway", goalID, goal.Status))
	}

	dest := document.ArchivedGoalDir(componentID, goalID)
	if exists, err := ws.store.Exists(dest); err != nil {
		return fail(err)
	} else if exists {
		return fail(fmt.Errorf("archive destination %s already exists", dest))
	}

	resp := archiveResponse{
		ComponentID:     componentID,
		GoalID:          goalID,
		PreviousStatus:  goal.Status,
		PreviousVersion: version.ExtractVersion(content),
		Warnings:        []string{},
	}
	resp.NewVersion = version.CalculateNewVersion(resp.PreviousVersion, version.Patch)
	note := "Archived"
	if r := strings.TrimSpace(req.GetString("reason", "")); r != "" {
		note += ": " + r
	}
	entry := version.Entry{Version: resp.NewVersion, Changes: note, Author: t.deps.author(req)}

	mut, err := ws.backups.Mutate(p,
		func(original string) (string, error) {
			return version.ApplyVersion(document.SetField(original, "Status", ArchivedStatus), entry), nil
		},
		func(written string) error {
			g, err := document.ParseGoal(p, written)
			if err != nil {
				return err
			}
			if g.Status != ArchivedStatus {
				return fmt.Errorf("status reads back as %q", g.Status)
			}
			return nil
		},
		backup.WithoutBackup(),
	)
	if err != nil {
		return fail(err)
	}

	if err := ws.store.Move(document.GoalDir(componentID, goalID), dest); err != nil {
		if restoreErr := ws.store.Write(p, mut.Original); restoreErr != nil {
			return fail(err, "Goal status was changed but the folder was not moved; restoring it failed: "+restoreErr.Error())
		}
		return fail(err)
	}
	resp.ArchivedPath = dest
	t.deps.Metrics.RecordVersionBump(string(version.Patch))
	t.deps.Log.Info().Str("component", componentID).Str("goal", goalID).Str("to", dest).Msg("goal archived")

	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}
