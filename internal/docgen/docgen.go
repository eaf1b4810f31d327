// Package docgen compiles the planning documents of a project into a single
// readable document.
package docgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/dashboard"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/HendryAvila/planmcp/internal/templates"
	"github.com/HendryAvila/planmcp/internal/version"
)

// Detail levels. Brief lists components and goals; standard adds purposes,
// descriptions and dependencies; detailed adds sub-goals, recent history
// and archived goals.
const (
	LevelBrief    = "brief"
	LevelStandard = "standard"
	LevelDetailed = "detailed"
)

// Formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// HistoryRows is how many history rows per goal the detailed level shows.
const HistoryRows = 5

var (
	ErrUnknownLevel  = errors.New("unknown detail level")
	ErrUnknownFormat = errors.New("unknown format")
)

// ParseLevel defaults to standard.
func ParseLevel(s string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "":
		return LevelStandard, nil
	case LevelBrief, LevelStandard, LevelDetailed:
		return l, nil
	}
	return "", fmt.Errorf("%w %q: use brief, standard or detailed", ErrUnknownLevel, s)
}

// ParseFormat defaults to markdown.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w %q: use markdown or json", ErrUnknownFormat, s)
}

// Options control Build.
type Options struct {
	Level          string
	IncludeMetrics bool
	Now            time.Time
}

// Documentation is the compiled project.
type Documentation struct {
	ProjectName    string            `json:"projectName"`
	Description    string            `json:"description,omitempty"`
	Vision         string            `json:"vision,omitempty"`
	GeneratedAt    string            `json:"generatedAt"`
	Level          string            `json:"level"`
	TotalGoals     int               `json:"totalGoals"`
	CompletedGoals int               `json:"completedGoals"`
	Progress       int               `json:"progress"`
	Components     []ComponentDoc    `json:"components"`
	Archived       []GoalDoc         `json:"archived,omitempty"`
	Metrics        *dashboard.Report `json:"metrics,omitempty"`
	Warnings       []string          `json:"warnings"`

	// Standard and Detailed switch template sections on.
	Standard bool `json:"-"`
	Detailed bool `json:"-"`
}

// ComponentDoc is one component section.
type ComponentDoc struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Purpose  string    `json:"purpose,omitempty"`
	Status   string    `json:"status,omitempty"`
	Owner    string    `json:"owner,omitempty"`
	Version  string    `json:"version,omitempty"`
	Progress int       `json:"progress"`
	Goals    []GoalDoc `json:"goals"`
}

// GoalDoc is one goal entry.
type GoalDoc struct {
	Key          string       `json:"key"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	Tier         string       `json:"tier,omitempty"`
	Priority     string       `json:"priority,omitempty"`
	Progress     int          `json:"progress"`
	LastUpdated  string       `json:"lastUpdated,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Dependencies []string     `json:"dependencies,omitempty"`
	SubGoals     []SubGoalDoc `json:"subGoals,omitempty"`
	History      []HistoryRow `json:"history,omitempty"`
}

// SubGoalDoc is a sub-goal line.
type SubGoalDoc struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// HistoryRow is a version history row with the version already formatted.
type HistoryRow struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Changes string `json:"changes"`
}

// Build loads the project below store's root. Metrics come from the
// progress dashboard with health and velocity.
func Build(store docstore.Store, opts Options) (*Documentation, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	p, err := project.Load(store)
	if err != nil {
		return nil, err
	}

	d := &Documentation{
		ProjectName: p.Name,
		Description: dropPlaceholder(p.Description),
		Vision:      dropPlaceholder(p.Vision),
		GeneratedAt: opts.Now.UTC().Format("2006-01-02 15:04 MST"),
		Level:       level,
		Progress:    p.Percent(),
		Components:  []ComponentDoc{},
		Warnings:    p.Warnings,
		Standard:    level != LevelBrief,
		Detailed:    level == LevelDetailed,
	}
	for _, c := range p.Components {
		cd := ComponentDoc{ID: c.ID, Name: c.Name, Progress: c.Percent(), Goals: []GoalDoc{}}
		if d.Standard {
			cd.Purpose, cd.Status, cd.Owner = c.Purpose, c.Status, c.Owner
			if c.Version > 0 {
				cd.Version = version.FormatVersion(c.Version)
			}
		}
		for _, g := range c.Goals {
			d.TotalGoals++
			if g.Completed() {
				d.CompletedGoals++
			}
			cd.Goals = append(cd.Goals, goalDoc(g, d))
		}
		d.Components = append(d.Components, cd)
	}
	if d.Detailed {
		for _, g := range p.Archived {
			d.Archived = append(d.Archived, GoalDoc{Key: g.Key, Name: g.Name, Status: g.Status, LastUpdated: g.LastUpdated})
		}
	}

	if opts.IncludeMetrics {
		r, err := dashboard.Generate(store, opts.Now, dashboard.WithHealth(), dashboard.WithVelocity())
		if err != nil {
			return nil, err
		}
		d.Metrics = r
	}
	return d, nil
}

func goalDoc(g *project.Goal, d *Documentation) GoalDoc {
	gd := GoalDoc{
		Key:         g.Key,
		Name:        g.Name,
		Status:      g.Status,
		Tier:        g.Tier,
		Progress:    g.Percent(),
		LastUpdated: g.LastUpdated,
	}
	if d.Standard {
		gd.Priority = g.Priority
		gd.Summary = firstParagraph(g.Description)
		gd.Dependencies = g.Dependencies
	}
	if d.Detailed {
		for _, sg := range g.SubGoals {
			gd.SubGoals = append(gd.SubGoals, SubGoalDoc{Name: sg.Name, Status: sg.Status, Progress: sg.Progress})
		}
		for i, e := range g.History {
			if i == HistoryRows {
				break
			}
			gd.History = append(gd.History, HistoryRow{Version: version.FormatVersion(e.Version), Date: e.Date, Changes: e.Changes})
		}
	}
	return gd
}

// firstParagraph flattens the first paragraph to one line.
func firstParagraph(s string) string {
	para, _, _ := strings.Cut(dropPlaceholder(s), "\n\n")
	return strings.Join(strings.Fields(para), " ")
}

// dropPlaceholder empties the italic hints scaffolded documents start with.
func dropPlaceholder(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 && strings.HasPrefix(s, "_") && strings.HasSuffix(s, "_") && !strings.Contains(s, "\n") {
		return ""
	}
	return s
}

// Render produces the documentation in the requested format.
func Render(d *Documentation, format string, renderer templates.Renderer) (string, error) {
	if format == FormatJSON {
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding documentation: %w", err)
		}
		return string(b), nil
	}
	return renderer.Render(templates.Documentation, d)
}
