// Package advisor suggests what to do next in a planning project, from
// project setup through unblocking, starting, refreshing and archiving
// goals.
package advisor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/dashboard"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/dustin/go-humanize"
)

// DefaultMax is how many suggestions are returned when no limit is given.
const DefaultMax = 5

// Priorities, highest first.
const (
	PrioritySetup = iota + 1
	PriorityUnblock
	PriorityStart
	PriorityMaintain
	PriorityTidy
	PriorityReview
)

// Suggestion is one recommended action. Tool and Arguments describe the
// call that carries it out.
type Suggestion struct {
	Priority  int            `json:"priority"`
	Action    string         `json:"action"`
	Tool      string         `json:"tool"`
	Goal      string         `json:"goal,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Options control Suggest.
type Options struct {
	// Max of 0 or less means DefaultMax.
	Max            int
	IncludeDetails bool
	Now            time.Time
}

// Suggest returns the most pressing suggestions and how many there were
// before the limit was applied.
func Suggest(p *project.Project, opts Options) ([]Suggestion, int) {
	all := rules(p, opts.Now)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority < all[j].Priority })

	total := len(all)
	limit := opts.Max
	if limit <= 0 {
		limit = DefaultMax
	}
	if len(all) > limit {
		all = all[:limit]
	}
	if !opts.IncludeDetails {
		for i := range all {
			all[i].Reason = ""
			all[i].Arguments = nil
		}
	}
	return all, total
}

func rules(p *project.Project, now time.Time) []Suggestion {
	if !p.HasOverview {
		return []Suggestion{{
			Priority: PrioritySetup,
			Action:   "Initialize the project",
			Tool:     "init_project",
			Reason:   document.ProjectOverviewPath + " is missing",
			Arguments: map[string]any{
				"name": "<project name>",
			},
		}}
	}
	if len(p.Components) == 0 {
		return []Suggestion{{
			Priority:  PrioritySetup,
			Action:    "Create the first component",
			Tool:      "create_component",
			Reason:    "The project has no components, so goals have nowhere to live",
			Arguments: map[string]any{"name": "<component name>"},
		}}
	}

	var out []Suggestion
	var openNow, open int
	for _, c := range p.Components {
		if len(c.Goals) == 0 {
			out = append(out, Suggestion{
				Priority:  PriorityMaintain,
				Action:    fmt.Sprintf("Define a first goal for %s", c.Name),
				Tool:      "start_goal_intake",
				Reason:    "The component has no major goals",
				Arguments: map[string]any{"componentId": c.ID},
			})
		}
		for _, g := range c.Goals {
			ids := map[string]any{"componentId": c.ID, "goalId": g.ID}
			if g.Completed() {
				out = append(out, Suggestion{
					Priority:  PriorityTidy,
					Action:    fmt.Sprintf("Archive %s", g.Name),
					Tool:      "archive_goal",
					Goal:      g.Key,
					Reason:    "The goal is " + g.Status,
					Arguments: ids,
				})
				continue
			}
			open++
			inNow := strings.EqualFold(strings.TrimSpace(g.Tier), "now")
			if inNow {
				openNow++
			}

			switch waiting := pending(p, g); {
			case g.Blocked():
				out = append(out, Suggestion{
					Priority:  PriorityUnblock,
					Action:    fmt.Sprintf("Unblock %s", g.Name),
					Tool:      "update_document_version",
					Goal:      g.Key,
					Reason:    blockedReason(waiting),
					Arguments: withChange(ids, "minor", "Unblocked: <what changed>"),
				})
			case inNow && g.Percent() == 0 && len(waiting) == 0:
				out = append(out, Suggestion{
					Priority:  PriorityStart,
					Action:    fmt.Sprintf("Start %s", g.Name),
					Tool:      "update_document_version",
					Goal:      g.Key,
					Reason:    "Now-tier goal at 0% with no open dependencies",
					Arguments: withChange(ids, "minor", "Work started"),
				})
			}
		}
	}
	for _, c := range p.Components {
		for _, g := range c.Goals {
			if g.Completed() {
				continue
			}
			if t, ok := g.Updated(); ok && now.Sub(t) > dashboard.StaleAfter {
				out = append(out, Suggestion{
					Priority:  PriorityMaintain,
					Action:    fmt.Sprintf("Refresh %s", g.Name),
					Tool:      "update_document_version",
					Goal:      g.Key,
					Reason:    "Last updated " + humanize.RelTime(t, now, "ago", "from now"),
					Arguments: withChange(map[string]any{"componentId": c.ID, "goalId": g.ID}, "patch", "Status review"),
				})
			}
		}
	}
	if open > 0 && openNow == 0 {
		out = append(out, Suggestion{
			Priority: PriorityMaintain,
			Action:   "Promote a goal to the Now tier",
			Tool:     "update_document_version",
			Reason:   fmt.Sprintf("%d open goals and none in the Now tier", open),
		})
	}
	if len(out) == 0 {
		out = append(out, Suggestion{
			Priority:  PriorityReview,
			Action:    "Review overall progress",
			Tool:      "generate_progress_dashboard",
			Reason:    "Nothing needs attention",
			Arguments: map[string]any{"format": "markdown"},
		})
	}
	return out
}

// pending lists the dependencies of g that are not completed. Unknown
// references count as pending.
func pending(p *project.Project, g *project.Goal) []string {
	var out []string
	for _, ref := range g.Dependencies {
		dep, ok := p.Resolve(ref, g)
		if !ok {
			out = append(out, ref+" (unknown)")
			continue
		}
		if !dep.Completed() {
			out = append(out, dep.Key)
		}
	}
	return out
}

func blockedReason(waiting []string) string {
	if len(waiting) == 0 {
		return "Status is Blocked and no dependency is open; record what is blocking it"
	}
	return "Waiting on " + strings.Join(waiting, ", ")
}

func withChange(ids map[string]any, changeType, description string) map[string]any {
	out := map[string]any{
		"documentType":      string(document.TypeMajorGoal),
		"changeType":        changeType,
		"changeDescription": description,
	}
	for k, v := range ids {
		out[k] = v
	}
	return out
}
