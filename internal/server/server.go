// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/config"
	"github.com/HendryAvila/planmcp/internal/journal"
	"github.com/HendryAvila/planmcp/internal/logging"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/HendryAvila/planmcp/internal/prompts"
	"github.com/HendryAvila/planmcp/internal/resources"
	"github.com/HendryAvila/planmcp/internal/session"
	"github.com/HendryAvila/planmcp/internal/storage"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/HendryAvila/planmcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// tool is what every handler in internal/tools provides.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. m may be nil.
//
// The returned cleanup function closes the database and must be called on
// shutdown (typically via defer). It is always non-nil and safe to call
// even if the database could not be opened.
func New(cfg config.Config, log zerolog.Logger, m *metrics.Metrics) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	deps := &tools.Deps{
		Renderer:   renderer,
		Metrics:    m,
		Log:        logging.Component(log, "tools"),
		Root:       cfg.ProjectRoot,
		Author:     cfg.DefaultAuthor,
		Retention:  backup.Retention(cfg.BackupRetention),
		SessionTTL: cfg.SessionTTL,
	}

	// --- Open the database ---
	//
	// Snapshots and sessions are an independent subsystem: if the database
	// fails to open, document tools keep working. Rollback reports that
	// snapshots are unavailable and intake sessions live in memory.

	cleanup := noop
	db, dbErr := storage.Open(cfg.DataDir)
	if dbErr != nil {
		log.Warn().Err(dbErr).Str("data_dir", cfg.DataDir).Msg("snapshot store disabled")
		deps.Sessions = session.NewMemoryStore()
	} else {
		cleanup = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("closing database")
			}
		}
		deps.Journal = journal.New(db)
		deps.Sessions = session.NewSQLStore(db)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := deps.Sessions.Sweep(ctx); err != nil {
		log.Warn().Err(err).Msg("sweeping expired sessions")
	} else if n > 0 {
		log.Debug().Int("removed", n).Msg("expired sessions swept")
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"planmcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(instrument(logging.Component(log, "mcp"), m)),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	for _, t := range []tool{
		// Scaffolding
		tools.NewInitProjectTool(deps),
		tools.NewCreateComponentTool(deps),
		tools.NewCreateMajorGoalTool(deps),
		tools.NewStartGoalIntakeTool(deps),
		tools.NewAnswerGoalIntakeTool(deps),

		// Versioning
		tools.NewAnalyzeImpactTool(deps),
		tools.NewUpdateDocumentVersionTool(deps),
		tools.NewUpdateComponentVersionTool(deps),
		tools.NewRollbackVersionTool(deps),
		tools.NewVersionHistoryTool(deps),

		// Maintenance
		tools.NewArchiveGoalTool(deps),
		tools.NewDashboardTool(deps),
		tools.NewFrontmatterTool(deps),

		// Reporting
		tools.NewHierarchyTreeTool(deps),
		tools.NewRoadmapTimelineTool(deps),
		tools.NewDependencyGraphTool(deps),
		tools.NewNextStepsTool(deps),
		tools.NewDocumentationTool(deps),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(cfg.ProjectRoot, renderer)
	s.AddResource(resourceHandler.DashboardResource(), resourceHandler.HandleDashboard)
	s.AddResource(resourceHandler.DashboardMarkdownResource(), resourceHandler.HandleDashboardMarkdown)

	log.Info().
		Str("version", Version).
		Str("root", cfg.ProjectRoot).
		Bool("snapshots", deps.Journal != nil).
		Msg("server ready")
	return s, cleanup, nil
}

// noop is the default cleanup when no database was opened.
func noop() {}

// instrument logs and times every tool call.
func instrument(log zerolog.Logger, m *metrics.Metrics) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, req)
			elapsed := time.Since(start)

			status := "ok"
			switch {
			case err != nil:
				status = "error"
			case result != nil && result.IsError:
				status = "failed"
			}
			m.RecordToolCall(req.Params.Name, status, elapsed)

			ev := log.Debug()
			if status != "ok" {
				ev = log.Warn().Err(err)
			}
			ev.Str("tool", req.Params.Name).Str("status", status).Dur("elapsed", elapsed).Msg("tool call")
			return result, err
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use planmcp effectively.
func serverInstructions() string {
	return `You have access to planmcp, an MCP server that keeps versioned planning documents.

## Document hierarchy

Every project is a tree of markdown documents under the project root:

- 01-planning/PROJECT-OVERVIEW.md: the project vision
- 02-goals-and-roadmap/ROADMAP.md: the roadmap by tier (Now, Next, Later, Someday)
- 02-goals-and-roadmap/components/<componentId>/OVERVIEW.md: one per component
- .../major-goals/<goalId>/GOAL-STATUS.md: one per major goal
- .../sub-goals/<subGoalId>/SUB-GOAL-STATUS.md: one per sub-goal
- 08-archive/goals/<componentId>--<goalId>/: archived goals

Each versioned document carries a version number and a Version History table.
Versions only ever move forward:

- major: ceil(v+1), so 1.3 -> 3.0 and 1.0 -> 2.0
- minor: plus 0.1 (1.3 -> 1.4)
- patch: plus 0.01 (1.3 -> 1.31)

## Rules

1. NEVER edit version numbers or Version History tables by hand. Use
   update_document_version or update_component_version.
2. Before a major change to the project overview or a component, call
   analyze_version_impact and tell the user which documents need review.
3. Dependent documents are listed for review, never rewritten. Walk the
   user through the list after a cascade.
4. rollback_version restores earlier content and still moves the version
   forward. Call get_version_history first to see which versions can be
   restored.
5. Prefer start_goal_intake over create_major_goal when the user has not
   already described the goal completely.

## Typical flow

1. init_project, then create_component for each area of the product
2. start_goal_intake / answer_goal_intake to capture major goals
3. update_component_version as plans change; review cascaded goals
4. generate_progress_dashboard to report progress; suggest_next_steps when
   the user asks what to do next
5. archive_goal once a goal is Completed

## Reports

- generate_hierarchy_tree: project, components, goals and sub-goals as a tree
- generate_roadmap_timeline: goals on a mermaid gantt chart, end dates
  projected from tier and progress when not completed
- generate_dependency_graph: goal dependencies, cycles and the critical path
- generate_documentation: every planning document compiled into one file

## Tool results

Every tool returns a JSON object with a success flag. When success is false,
read the error and warnings and explain them to the user. Warnings on a
successful result (for example a retained backup path) are worth mentioning.`
}
