package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/planmcp/internal/cascade"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/impact"
	"github.com/HendryAvila/planmcp/internal/revision"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
)

var documentTypes = []string{
	string(document.TypeProjectOverview),
	string(document.TypeRoadmap),
	string(document.TypeComponent),
	string(document.TypeMajorGoal),
	string(document.TypeSubGoal),
}

var changeTypes = []string{string(version.Major), string(version.Minor), string(version.Patch)}

// locateDocument picks the document a call refers to. An explicit
// documentPath wins; otherwise the path is derived from documentType and
// the component and goal ids.
func locateDocument(req mcp.CallToolRequest) (string, document.Type, error) {
	t := document.Type(strings.TrimSpace(req.GetString("documentType", "")))
	if t != "" && !document.ValidType(t) {
		return "", "", fmt.Errorf("unknown documentType %q: must be one of %s", t, strings.Join(documentTypes, ", "))
	}
	if p := strings.TrimSpace(req.GetString("documentPath", "")); p != "" {
		return p, t, nil
	}

	componentID := strings.TrimSpace(req.GetString("componentId", ""))
	goalID := strings.TrimSpace(req.GetString("goalId", ""))
	if err := checkIDs("componentId", componentID, "goalId", goalID); err != nil {
		return "", "", err
	}
	switch t {
	case document.TypeProjectOverview:
		return document.ProjectOverviewPath, t, nil
	case document.TypeRoadmap:
		return document.RoadmapPath, t, nil
	case document.TypeComponent:
		if componentID != "" {
			return document.ComponentPath(componentID), t, nil
		}
	case document.TypeMajorGoal:
		if componentID != "" && goalID != "" {
			return document.GoalPath(componentID, goalID), t, nil
		}
	case "":
		return "", "", errors.New("documentPath or documentType is required")
	}
	return "", "", fmt.Errorf("documentPath is required for %s documents unless componentId (and goalId for goals) are given", t)
}

// --- analyze_version_impact ---

// AnalyzeImpactTool reports which documents a proposed change affects.
type AnalyzeImpactTool struct {
	deps *Deps
}

// NewAnalyzeImpactTool creates an AnalyzeImpactTool.
func NewAnalyzeImpactTool(deps *Deps) *AnalyzeImpactTool {
	return &AnalyzeImpactTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_version_impact",
		mcp.WithDescription(
			"Analyze which planning documents are affected by a proposed change to one document. "+
				"Read-only: nothing is written. Returns impacted documents graded low/medium/high, "+
				"a summary and recommendations.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("documentType",
			mcp.Required(),
			mcp.Description("Type of the document being changed"),
			mcp.Enum(documentTypes...),
		),
		mcp.WithString("documentPath", mcp.Description("Path of the changed document relative to the project root. Derived from documentType and componentId when omitted.")),
		mcp.WithString("componentId", mcp.Description("Component id, used to locate component and goal documents")),
		mcp.WithString("goalId", mcp.Description("Goal id, used to locate goal documents")),
		mcp.WithString("proposedChanges", mcp.Description("Free-text description of the change")),
		mcp.WithString("changeType",
			mcp.Required(),
			mcp.Description("Size of the change"),
			mcp.Enum(changeTypes...),
		),
	)
}

type impactResponse struct {
	outcome
	DocumentType document.Type      `json:"documentType"`
	DocumentPath string             `json:"documentPath"`
	ChangeType   version.ChangeType `json:"changeType"`
	impact.Result
}

// Handle processes the analyze_version_impact tool call.
func (t *AnalyzeImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := impactResponse{}
	failWith := func(err error) (*mcp.CallToolResult, error) {
		resp.outcome = failedWith(err)
		resp.Result = impact.Result{Warnings: nonNil(resp.Warnings)}
		return respond(resp.outcome, resp)
	}

	p, docType, err := locateDocument(req)
	if err != nil {
		return failWith(err)
	}
	if docType == "" {
		return failWith(errors.New("documentType is required"))
	}
	resp.DocumentType, resp.DocumentPath = docType, p

	ct, err := version.ParseChangeType(req.GetString("changeType", ""))
	if err != nil {
		return failWith(err)
	}
	resp.ChangeType = ct

	ws, err := t.deps.workspace(req)
	if err != nil {
		return failWith(err)
	}
	res, err := impact.Analyze(ws.store, impact.Request{
		DocumentType:    docType,
		ChangedPath:     p,
		ProposedChanges: req.GetString("proposedChanges", ""),
		ChangeType:      ct,
	})
	if err != nil {
		return failWith(err)
	}
	resp.outcome = succeeded()
	resp.Result = *res
	return respond(resp.outcome, resp)
}

// --- update_document_version ---

// UpdateDocumentVersionTool bumps the version of a single document.
type UpdateDocumentVersionTool struct {
	deps *Deps
}

// NewUpdateDocumentVersionTool creates an UpdateDocumentVersionTool.
func NewUpdateDocumentVersionTool(deps *Deps) *UpdateDocumentVersionTool {
	return &UpdateDocumentVersionTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateDocumentVersionTool) Definition() mcp.Tool {
	return mcp.NewTool("update_document_version",
		mcp.WithDescription(
			"Bump a planning document's version and add a row to its Version History table. "+
				"The document is backed up first and restored if the written result does not validate. "+
				"An impact analysis runs alongside and is reported with the result.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("documentPath", mcp.Description("Path of the document relative to the project root")),
		mcp.WithString("documentType",
			mcp.Description("Type of the document. Inferred from documentPath when omitted."),
			mcp.Enum(documentTypes...),
		),
		mcp.WithString("componentId", mcp.Description("Component id, used when documentPath is omitted")),
		mcp.WithString("goalId", mcp.Description("Goal id, used when documentPath is omitted")),
		mcp.WithString("changeType",
			mcp.Required(),
			mcp.Description("major: ceil(v+1), minor: +0.1, patch: +0.01"),
			mcp.Enum(changeTypes...),
		),
		mcp.WithString("changeDescription",
			mcp.Required(),
			mcp.Description("What changed. Written into the history row."),
		),
		mcp.WithString("author", mcp.Description("Author for the history row")),
		mcp.WithBoolean("createBackup",
			mcp.Description("Write a .backup-<timestamp> file before mutating. Defaults to true."),
			mcp.DefaultBool(true),
		),
	)
}

type updateDocumentResponse struct {
	outcome
	revision.UpdateResult
}

// Handle processes the update_document_version tool call.
func (t *UpdateDocumentVersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, docType, err := locateDocument(req)
	if err != nil {
		return respond(failedWith(err), updateDocumentResponse{outcome: failedWith(err), UpdateResult: revision.UpdateResult{Warnings: []string{}}})
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}

	svc := revision.NewService(ws.store, ws.backups, t.deps.Journal, t.deps.Log, t.deps.Metrics)
	res, err := svc.UpdateDocumentVersion(ctx, revision.UpdateRequest{
		DocumentPath:      p,
		DocumentType:      docType,
		ChangeType:        version.ChangeType(req.GetString("changeType", "")),
		ChangeDescription: req.GetString("changeDescription", ""),
		Author:            t.deps.author(req),
		CreateBackup:      boolArg(req, "createBackup", true),
	})
	if err != nil {
		resp := updateDocumentResponse{
			outcome:      failedWith(err),
			UpdateResult: revision.UpdateResult{DocumentPath: p, Warnings: nonNil(res.Warnings), BackupPath: res.BackupPath},
		}
		return respond(resp.outcome, resp)
	}
	return respond(succeeded(), updateDocumentResponse{outcome: succeeded(), UpdateResult: *res})
}

// --- rollback_version ---

// RollbackVersionTool restores a document to the content of an earlier
// version.
type RollbackVersionTool struct {
	deps *Deps
}

// NewRollbackVersionTool creates a RollbackVersionTool.
func NewRollbackVersionTool(deps *Deps) *RollbackVersionTool {
	return &RollbackVersionTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *RollbackVersionTool) Definition() mcp.Tool {
	return mcp.NewTool("rollback_version",
		mcp.WithDescription(
			"Restore a document to the content it had at an earlier version listed in its Version History. "+
				"The history table is kept and the version moves forward by a patch with a rollback row. "+
				"Requires the snapshot journal.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("documentPath", mcp.Description("Path of the document relative to the project root")),
		mcp.WithString("documentType", mcp.Description("Type of the document"), mcp.Enum(documentTypes...)),
		mcp.WithString("componentId", mcp.Description("Component id, used when documentPath is omitted")),
		mcp.WithString("goalId", mcp.Description("Goal id, used when documentPath is omitted")),
		mcp.WithNumber("targetVersion",
			mcp.Required(),
			mcp.Description("Version to restore, e.g. 1.1"),
		),
		mcp.WithString("reason", mcp.Description("Why the rollback is needed. Added to the history row.")),
		mcp.WithString("author", mcp.Description("Author for the history row")),
		mcp.WithBoolean("createBackup", mcp.Description("Defaults to true."), mcp.DefaultBool(true)),
		mcp.WithBoolean("cascadeRollback",
			mcp.Description("List dependent documents that may need rolling back too. They are reported, not changed."),
			mcp.DefaultBool(false),
		),
	)
}

type rollbackResponse struct {
	outcome
	revision.RollbackResult
}

// Handle processes the rollback_version tool call.
func (t *RollbackVersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	failWith := func(err error, res *revision.RollbackResult) (*mcp.CallToolResult, error) {
		resp := rollbackResponse{outcome: failedWith(err), RollbackResult: revision.RollbackResult{Warnings: []string{}}}
		if res != nil {
			resp.DocumentPath = res.DocumentPath
			resp.Warnings = nonNil(res.Warnings)
			resp.BackupPath = res.BackupPath
		}
		return respond(resp.outcome, resp)
	}

	p, _, err := locateDocument(req)
	if err != nil {
		return failWith(err, nil)
	}
	target, ok := versionArg(req, "targetVersion")
	if !ok {
		return failWith(errors.New("targetVersion is required and must be a number"), nil)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return failWith(err, nil)
	}

	svc := revision.NewService(ws.store, ws.backups, t.deps.Journal, t.deps.Log, t.deps.Metrics)
	res, err := svc.RollbackVersion(ctx, revision.RollbackRequest{
		DocumentPath:    p,
		TargetVersion:   target,
		Reason:          req.GetString("reason", ""),
		Author:          t.deps.author(req),
		CreateBackup:    boolArg(req, "createBackup", true),
		CascadeRollback: boolArg(req, "cascadeRollback", false),
	})
	if err != nil {
		return failWith(err, res)
	}
	return respond(succeeded(), rollbackResponse{outcome: succeeded(), RollbackResult: *res})
}

// --- get_version_history ---

// VersionHistoryTool lists a document's Version History.
type VersionHistoryTool struct {
	deps *Deps
}

// NewVersionHistoryTool creates a VersionHistoryTool.
func NewVersionHistoryTool(deps *Deps) *VersionHistoryTool {
	return &VersionHistoryTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *VersionHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_version_history",
		mcp.WithDescription(
			"List a document's Version History rows, newest first, with the versions that can be rolled back to.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("documentPath", mcp.Description("Path of the document relative to the project root")),
		mcp.WithString("documentType", mcp.Description("Type of the document"), mcp.Enum(documentTypes...)),
		mcp.WithString("componentId", mcp.Description("Component id, used when documentPath is omitted")),
		mcp.WithString("goalId", mcp.Description("Goal id, used when documentPath is omitted")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return. 0 returns all."), mcp.DefaultNumber(0)),
	)
}

type historyResponse struct {
	outcome
	revision.HistoryResult
}

// Handle processes the get_version_history tool call.
func (t *VersionHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, _, err := locateDocument(req)
	if err != nil {
		return fail(err)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return fail(err)
	}
	svc := revision.NewService(ws.store, ws.backups, t.deps.Journal, t.deps.Log, t.deps.Metrics)
	res, err := svc.History(ctx, p, intArg(req, "limit", 0))
	if err != nil {
		return fail(err)
	}
	return respond(succeeded(), historyResponse{outcome: succeeded(), HistoryResult: *res})
}

// --- update_component_version ---

// UpdateComponentVersionTool changes component fields and bumps its
// version, listing the goals that may need to follow.
type UpdateComponentVersionTool struct {
	deps *Deps
}

// NewUpdateComponentVersionTool creates an UpdateComponentVersionTool.
func NewUpdateComponentVersionTool(deps *Deps) *UpdateComponentVersionTool {
	return &UpdateComponentVersionTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateComponentVersionTool) Definition() mcp.Tool {
	return mcp.NewTool("update_component_version",
		mcp.WithDescription(
			"Update fields of a component OVERVIEW.md and bump its version. "+
				"The change type is inferred when omitted: name/purpose/scope are major, "+
				"status/timeline/goals are minor, anything else is a patch. "+
				"Goals under the component are listed for review but never rewritten.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component folder name")),
		mcp.WithObject("updates",
			mcp.Required(),
			mcp.Description(`Field values to set, e.g. {"status": "Blocked", "timeline": "Q3"}`),
		),
		mcp.WithString("changeType", mcp.Description("Overrides the inferred change type"), mcp.Enum(changeTypes...)),
		mcp.WithBoolean("cascadeToGoals", mcp.Description("List dependent goals. Defaults to true."), mcp.DefaultBool(true)),
		mcp.WithBoolean("dryRun", mcp.Description("Report the change without writing anything"), mcp.DefaultBool(false)),
		mcp.WithString("author", mcp.Description("Author for the history row")),
	)
}

type updateComponentResponse struct {
	outcome
	cascade.Result
}

// Handle processes the update_component_version tool call.
func (t *UpdateComponentVersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	failWith := func(err error, res *cascade.Result) (*mcp.CallToolResult, error) {
		resp := updateComponentResponse{outcome: failedWith(err), Result: cascade.Result{Warnings: []string{}}}
		if res != nil {
			resp.ComponentID = res.ComponentID
			resp.DocumentPath = res.DocumentPath
			resp.Warnings = nonNil(res.Warnings)
			resp.BackupPath = res.BackupPath
		}
		return respond(resp.outcome, resp)
	}

	updates, ok := req.GetArguments()["updates"].(map[string]any)
	if !ok {
		return failWith(errors.New("updates must be an object of field values"), nil)
	}
	var ct version.ChangeType
	if raw := req.GetString("changeType", ""); raw != "" {
		parsed, err := version.ParseChangeType(raw)
		if err != nil {
			return failWith(err, nil)
		}
		ct = parsed
	}
	componentID := strings.TrimSpace(req.GetString("componentId", ""))
	if err := checkIDs("componentId", componentID); err != nil {
		return failWith(err, nil)
	}
	ws, err := t.deps.workspace(req)
	if err != nil {
		return failWith(err, nil)
	}

	svc := cascade.NewService(ws.store, ws.backups, t.deps.Journal, t.deps.Log, t.deps.Metrics)
	res, err := svc.UpdateComponentVersion(ctx, cascade.Request{
		ComponentID:    componentID,
		Updates:        updates,
		ChangeType:     ct,
		CascadeToGoals: boolArg(req, "cascadeToGoals", true),
		DryRun:         boolArg(req, "dryRun", false),
		Author:         t.deps.author(req),
	})
	if err != nil {
		return failWith(err, res)
	}
	return respond(succeeded(), updateComponentResponse{outcome: succeeded(), Result: *res})
}
