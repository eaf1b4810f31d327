package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/cascade"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

type intakeResponse struct {
	outcome
	SessionID  string            `json:"sessionId"`
	Step       int               `json:"step"`
	TotalSteps int               `json:"totalSteps"`
	Question   *session.Question `json:"question,omitempty"`
	ExpiresAt  *time.Time        `json:"expiresAt,omitempty"`
	Completed  bool              `json:"completed"`
	// Set once the goal has been created.
	GoalID       string   `json:"goalId,omitempty"`
	DocumentPath string   `json:"documentPath,omitempty"`
	Warnings     []string `json:"warnings"`
}

func newIntakeResponse(s *session.Session) intakeResponse {
	resp := intakeResponse{
		SessionID:  s.ID,
		Step:       min(s.Step+1, len(session.GoalQuestions)),
		TotalSteps: len(session.GoalQuestions),
		Warnings:   []string{},
	}
	if q, ok := s.Current(); ok {
		resp.Question = &q
	}
	expires := s.ExpiresAt.UTC()
	resp.ExpiresAt = &expires
	return resp
}

// --- start_goal_intake ---

// StartGoalIntakeTool opens a goal intake conversation for a component.
type StartGoalIntakeTool struct {
	deps *Deps
}

// NewStartGoalIntakeTool creates a StartGoalIntakeTool.
func NewStartGoalIntakeTool(deps *Deps) *StartGoalIntakeTool {
	return &StartGoalIntakeTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *StartGoalIntakeTool) Definition() mcp.Tool {
	return mcp.NewTool("start_goal_intake",
		mcp.WithDescription(
			"Start a guided conversation that collects a new major goal one question at a time. "+
				"Returns a sessionId and the first question; pass each answer to answer_goal_intake. "+
				"Sessions expire when left idle.",
		),
		mcp.WithString("projectPath", mcp.Description("Project root. Defaults to the configured or discovered project.")),
		mcp.WithString("componentId", mcp.Required(), mcp.Description("Component the goal belongs to")),
	)
}

// Handle processes the start_goal_intake tool call.
func (t *StartGoalIntakeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	compPath := document.ComponentPath(componentID)
	if exists, err := ws.store.Exists(compPath); err != nil {
		return fail(err)
	} else if !exists {
		return fail(fmt.Errorf("%w: %s (expected %s)", cascade.ErrComponentNotFound, componentID, compPath))
	}

	s := session.New(ws.store.Root(), componentID, t.deps.SessionTTL)
	if err := t.deps.Sessions.Put(ctx, s); err != nil {
		return fail(fmt.Errorf("saving session: %w", err))
	}
	t.deps.Log.Debug().Str("session", s.ID).Str("component", componentID).Msg("goal intake started")

	resp := newIntakeResponse(s)
	resp.outcome = succeeded()
	return respond(resp.outcome, resp)
}

// --- answer_goal_intake ---

// AnswerGoalIntakeTool records one answer and creates the goal after the
// last question.
type AnswerGoalIntakeTool struct {
	deps *Deps
}

// NewAnswerGoalIntakeTool creates an AnswerGoalIntakeTool.
func NewAnswerGoalIntakeTool(deps *Deps) *AnswerGoalIntakeTool {
	return &AnswerGoalIntakeTool{deps: deps}
}

// Definition returns the MCP tool definition for registration.
func (t *AnswerGoalIntakeTool) Definition() mcp.Tool {
	return mcp.NewTool("answer_goal_intake",
		mcp.WithDescription(
			"Answer the pending question of a goal intake session. Returns the next question, "+
				"or creates the goal once every question is answered and closes the session.",
		),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("Id returned by start_goal_intake")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Answer to the pending question. Empty accepts the default.")),
	)
}

// Handle processes the answer_goal_intake tool call.
func (t *AnswerGoalIntakeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("sessionId", ""))
	if id == "" {
		return fail(errors.New("sessionId is required"))
	}
	s, err := t.deps.Sessions.Get(ctx, id)
	if err != nil {
		return fail(fmt.Errorf("session %s: %w", id, err))
	}

	if err := s.Answer(req.GetString("answer", "")); err != nil {
		// The session stays on the same question.
		resp := newIntakeResponse(s)
		resp.outcome = failedWith(err)
		return respond(resp.outcome, resp)
	}

	if !s.Done() {
		s.Touch(t.deps.SessionTTL)
		if err := t.deps.Sessions.Put(ctx, s); err != nil {
			return fail(fmt.Errorf("saving session: %w", err))
		}
		resp := newIntakeResponse(s)
		resp.outcome = succeeded()
		return respond(resp.outcome, resp)
	}

	ws := t.deps.workspaceAt(s.ProjectRoot)
	goalID, p, err := createGoal(ws, t.deps.Renderer, goalInput{
		ComponentID: s.ComponentID,
		Name:        s.Answers["name"],
		Description: s.Answers["description"],
		Priority:    s.Answers["priority"],
		Tier:        s.Answers["tier"],
		Owner:       s.Answers["owner"],
		Author:      t.deps.Author,
	})
	if err != nil {
		return fail(err)
	}

	resp := newIntakeResponse(s)
	if err := t.deps.Sessions.Delete(ctx, id); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Session %s was not removed: %v", id, err))
	}
	t.deps.Log.Info().Str("session", id).Str("goal", goalID).Msg("goal intake completed")

	resp.outcome = succeeded()
	resp.Completed = true
	resp.ExpiresAt = nil
	resp.GoalID = goalID
	resp.DocumentPath = p
	return respond(resp.outcome, resp)
}
