// Package dashboard aggregates goal status documents into a progress
// report.
package dashboard

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/dustin/go-humanize"
)

// StaleAfter is how long a goal may go without an update before it is
// reported as stale.
const StaleAfter = 30 * 24 * time.Hour

// Format selects the dashboard rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name. Empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("invalid format %q: must be markdown or json", s)
}

// Count is one bucket of an aggregation.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GoalSummary is one goal as shown on the dashboard.
type GoalSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Component   string `json:"component"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	Tier        string `json:"tier,omitempty"`
	Progress    int    `json:"progress"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	// Age is LastUpdated relative to the report time, e.g. "2 months ago".
	Age  string `json:"age,omitempty"`
	Path string `json:"path"`
}

// ComponentSummary aggregates the goals of one component.
type ComponentSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Goals           int    `json:"goals"`
	Completed       int    `json:"completed"`
	AverageProgress int    `json:"averageProgress"`
	Bar             string `json:"-"`
}

// Report is the full dashboard.
type Report struct {
	ProjectName     string             `json:"projectName"`
	GeneratedAt     string             `json:"generatedAt"`
	TotalGoals      int                `json:"totalGoals"`
	CompletedGoals  int                `json:"completedGoals"`
	AverageProgress int                `json:"averageProgress"`
	ByStatus        []Count            `json:"byStatus"`
	ByTier          []Count            `json:"byTier"`
	Components      []ComponentSummary `json:"components"`
	StaleGoals      []GoalSummary      `json:"staleGoals"`
	Goals           []GoalSummary      `json:"goals"`
	// Velocity and Health are only set when requested.
	Velocity *Velocity `json:"velocity,omitempty"`
	Health   *Health   `json:"health,omitempty"`
	Warnings []string  `json:"warnings"`
}

// Option adds an optional section to the report.
type Option func(*options)

type options struct {
	velocity bool
	health   bool
}

// WithVelocity adds completion and activity rates.
func WithVelocity() Option { return func(o *options) { o.velocity = true } }

// WithHealth adds a health score with the issues that lowered it.
func WithHealth() Option { return func(o *options) { o.health = true } }

// tierOrder fixes the order of the tier buckets; unknown tiers sort after.
var tierOrder = map[string]int{"now": 0, "next": 1, "later": 2, "someday": 3}

// Generate scans every goal under the components folder.
func Generate(store docstore.Store, now time.Time, opts ...Option) (*Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{
		GeneratedAt: now.UTC().Format("2006-01-02 15:04 MST"),
		ByStatus:    []Count{},
		ByTier:      []Count{},
		Components:  []ComponentSummary{},
		StaleGoals:  []GoalSummary{},
		Goals:       []GoalSummary{},
		Warnings:    []string{},
	}
	r.ProjectName = project.ReadName(store)

	compPaths, err := store.Glob(document.ComponentsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	comps := map[string]*ComponentSummary{}
	var order []string
	for _, p := range compPaths {
		id := path.Base(path.Dir(p))
		cs := &ComponentSummary{ID: id, Name: id}
		if content, err := store.Read(p); err == nil {
			if c, err := document.ParseComponent(id, content); err == nil {
				cs.Name = c.Name
			}
		}
		comps[id] = cs
		order = append(order, id)
	}

	goalPaths, err := store.Glob(document.AllGoalsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}

	statuses := map[string]int{}
	tiers := map[string]int{}
	progressSum := 0
	var acts []activity
	for _, p := range goalPaths {
		content, err := store.Read(p)
		if err != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Could not read %s: %v", p, err))
			continue
		}
		g, err := document.ParseGoal(p, content)
		if err != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Skipped %s: %v", p, err))
			continue
		}
		if o.velocity {
			acts = append(acts, activityOf(g, content))
		}
		compID, _ := document.ComponentIDFromPath(p)
		id := g.ID
		if id == "" {
			id = path.Base(path.Dir(p))
		}
		gs := GoalSummary{
			ID:          id,
			Name:        g.Name,
			Component:   compID,
			Status:      g.Status,
			Priority:    g.Priority,
			Tier:        g.Tier,
			Progress:    g.Progress,
			LastUpdated: g.LastUpdated,
			Path:        p,
		}
		completed := g.Completed()
		if completed {
			gs.Progress = 100
			r.CompletedGoals++
		}
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(g.LastUpdated)); err == nil {
			gs.Age = humanize.RelTime(t, now, "ago", "from now")
			if !completed && now.Sub(t) > StaleAfter {
				r.StaleGoals = append(r.StaleGoals, gs)
			}
		}

		r.Goals = append(r.Goals, gs)
		statuses[g.Status]++
		tier := g.Tier
		if tier == "" {
			tier = "Unassigned"
		}
		tiers[tier]++
		progressSum += gs.Progress

		cs, ok := comps[compID]
		if !ok {
			cs = &ComponentSummary{ID: compID, Name: compID}
			comps[compID] = cs
			order = append(order, compID)
		}
		cs.Goals++
		cs.AverageProgress += gs.Progress
		if completed {
			cs.Completed++
		}
	}

	r.TotalGoals = len(r.Goals)
	if r.TotalGoals > 0 {
		r.AverageProgress = progressSum / r.TotalGoals
	}
	for _, id := range order {
		cs := comps[id]
		if cs.Goals > 0 {
			cs.AverageProgress /= cs.Goals
		}
		cs.Bar = bar(cs.AverageProgress)
		r.Components = append(r.Components, *cs)
	}

	if o.velocity {
		archived, err := archivedActivity(store)
		if err != nil {
			r.Warnings = append(r.Warnings, err.Error())
		}
		r.Velocity = velocity(append(acts, archived...), r.TotalGoals-r.CompletedGoals, now)
	}
	if o.health {
		r.Health = health(r)
	}

	r.ByStatus = counts(statuses, func(a, b string) bool { return a < b })
	r.ByTier = counts(tiers, func(a, b string) bool {
		oa, okA := tierOrder[strings.ToLower(a)]
		ob, okB := tierOrder[strings.ToLower(b)]
		switch {
		case okA && okB:
			return oa < ob
		case okA != okB:
			return okA
		}
		return a < b
	})
	return r, nil
}

// Render produces the report in the requested format.
func Render(r *Report, f Format, renderer templates.Renderer) (string, error) {
	if f == FormatJSON {
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding dashboard: %w", err)
		}
		return string(b), nil
	}
	return renderer.Render(templates.Dashboard, r)
}

func counts(m map[string]int, less func(a, b string) bool) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Label, out[j].Label) })
	return out
}

// bar draws a ten-cell progress bar.
func bar(pct int) string {
	filled := pct / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
