// Package project loads the whole planning hierarchy of a project into
// memory: components, their major goals and the goals' sub-goals.
//
// Documents that cannot be read or parsed are skipped with a warning so
// one broken file never hides the rest of the project.
package project

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/version"
)

// Project is a loaded planning hierarchy.
type Project struct {
	Name        string
	Description string
	Vision      string
	// HasOverview is false when PROJECT-OVERVIEW.md is missing.
	HasOverview bool
	HasRoadmap  bool
	Components  []*Component
	// Archived holds goals moved to the archive folder.
	Archived []*Goal
	Warnings []string
}

// Component is one component and its goals.
type Component struct {
	ID      string
	Name    string
	Purpose string
	Status  string
	Owner   string
	Version float64
	Path    string
	// Listed is false for folders that hold goals but no OVERVIEW.md.
	Listed bool
	Goals  []*Goal
}

// Goal is a major goal with its history and sub-goals.
type Goal struct {
	document.Goal
	// Key is "<componentId>/<goalId>" and unique within the project.
	Key         string
	Version     float64
	Description string
	History     []version.Entry
	SubGoals    []*document.SubGoal
}

// Percent is 100 for completed goals and the recorded progress otherwise.
func (g *Goal) Percent() int {
	if g.Completed() {
		return 100
	}
	return g.Goal.Progress
}

// Created is the date of the oldest history row, or LastUpdated when the
// goal has no history.
func (g *Goal) Created() (time.Time, bool) {
	if n := len(g.History); n > 0 {
		if t, err := ParseDate(g.History[n-1].Date); err == nil {
			return t, true
		}
	}
	return g.Updated()
}

// Updated parses the Last Updated field.
func (g *Goal) Updated() (time.Time, bool) {
	t, err := ParseDate(g.LastUpdated)
	return t, err == nil
}

// Blocked reports whether the goal's status marks it as blocked.
func (g *Goal) Blocked() bool {
	return strings.Contains(strings.ToLower(g.Status), "block")
}

// Percent averages the goal progress of a component. It is 0 without goals.
func (c *Component) Percent() int {
	if len(c.Goals) == 0 {
		return 0
	}
	sum := 0
	for _, g := range c.Goals {
		sum += g.Percent()
	}
	return sum / len(c.Goals)
}

// Goals returns every active goal in component order.
func (p *Project) Goals() []*Goal {
	var out []*Goal
	for _, c := range p.Components {
		out = append(out, c.Goals...)
	}
	return out
}

// Percent averages the progress of every active goal.
func (p *Project) Percent() int {
	goals := p.Goals()
	if len(goals) == 0 {
		return 0
	}
	sum := 0
	for _, g := range goals {
		sum += g.Percent()
	}
	return sum / len(goals)
}

// Component finds a component by id.
func (p *Project) Component(id string) (*Component, bool) {
	for _, c := range p.Components {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Resolve finds the goal a dependency reference points at. A reference is
// "<componentId>/<goalId>", a goal id within from's component, or a goal id
// that is unique across the project.
func (p *Project) Resolve(ref string, from *Goal) (*Goal, bool) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if compID, goalID, ok := strings.Cut(ref, "/"); ok {
		if c, ok := p.Component(compID); ok {
			for _, g := range c.Goals {
				if g.ID == goalID {
					return g, true
				}
			}
		}
		return nil, false
	}
	if from != nil {
		if c, ok := p.Component(from.Component); ok {
			for _, g := range c.Goals {
				if g.ID == ref {
					return g, true
				}
			}
		}
	}
	var found *Goal
	for _, g := range p.Goals() {
		if g.ID == ref {
			if found != nil {
				return nil, false
			}
			found = g
		}
	}
	return found, found != nil
}

// Load reads the hierarchy below store's root.
func Load(store docstore.Store) (*Project, error) {
	p := &Project{Name: "Project", Components: []*Component{}, Archived: []*Goal{}, Warnings: []string{}}

	if content, err := store.Read(document.ProjectOverviewPath); err == nil {
		p.HasOverview = true
		p.Name = nameFrom(content)
		p.Description, _ = document.Section(content, "Description")
		p.Vision, _ = document.Section(content, "Vision")
	} else if !docstore.IsNotFound(err) {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Could not read %s: %v", document.ProjectOverviewPath, err))
	}
	if ok, err := store.Exists(document.RoadmapPath); err == nil {
		p.HasRoadmap = ok
	}

	overviews, err := store.Glob(document.ComponentsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	for _, op := range overviews {
		id := path.Base(path.Dir(op))
		c := &Component{ID: id, Name: id, Path: op, Listed: true, Goals: []*Goal{}}
		content, err := store.Read(op)
		if err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("Could not read %s: %v", op, err))
		} else if parsed, err := document.ParseComponent(id, content); err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("Skipped %s: %v", op, err))
		} else {
			c.Name = parsed.Name
			c.Purpose = parsed.Purpose
			c.Status = parsed.Status
			c.Owner = parsed.Owner
			c.Version = version.ExtractVersion(content)
		}
		p.Components = append(p.Components, c)
	}

	goalPaths, err := store.Glob(document.AllGoalsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	for _, gp := range goalPaths {
		g, ok := p.loadGoal(store, gp)
		if !ok {
			continue
		}
		compID, _ := document.ComponentIDFromPath(gp)
		c, ok := p.Component(compID)
		if !ok {
			c = &Component{ID: compID, Name: compID, Path: document.ComponentPath(compID), Goals: []*Goal{}}
			p.Components = append(p.Components, c)
		}
		g.Component = compID
		g.Key = compID + "/" + g.ID
		c.Goals = append(c.Goals, g)
	}

	archived, err := store.Glob(document.ArchivedGoalsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing archived goals: %w", err)
	}
	for _, ap := range archived {
		if g, ok := p.loadGoal(store, ap); ok {
			g.Key = path.Base(path.Dir(ap))
			p.Archived = append(p.Archived, g)
		}
	}
	return p, nil
}

func (p *Project) loadGoal(store docstore.Store, gp string) (*Goal, bool) {
	content, err := store.Read(gp)
	if err != nil {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Could not read %s: %v", gp, err))
		return nil, false
	}
	parsed, err := document.ParseGoal(gp, content)
	if err != nil {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Skipped %s: %v", gp, err))
		return nil, false
	}
	// The folder name is authoritative; the Goal ID field may be stale.
	parsed.ID = path.Base(path.Dir(gp))
	g := &Goal{
		Goal:     *parsed,
		Version:  version.ExtractVersion(content),
		History:  version.ParseHistory(content),
		SubGoals: []*document.SubGoal{},
	}
	g.Description, _ = document.Section(content, "Description")

	subPaths, err := store.Glob(document.SubGoalsGlob(path.Dir(gp)))
	if err != nil {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Could not list sub-goals of %s: %v", gp, err))
		return g, true
	}
	for _, sp := range subPaths {
		content, err := store.Read(sp)
		if err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("Could not read %s: %v", sp, err))
			continue
		}
		sg, err := document.ParseSubGoal(sp, content)
		if err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("Skipped %s: %v", sp, err))
			continue
		}
		g.SubGoals = append(g.SubGoals, sg)
	}
	return g, true
}

// ReadName returns the project name from PROJECT-OVERVIEW.md, or "Project".
func ReadName(store docstore.Store) string {
	content, err := store.Read(document.ProjectOverviewPath)
	if err != nil {
		return "Project"
	}
	return nameFrom(content)
}

func nameFrom(content string) string {
	if name := document.FieldMap(content)["name"]; name != "" {
		return name
	}
	if t := document.Title(content); t != "" {
		return strings.TrimSuffix(t, ": Project Overview")
	}
	return "Project"
}

// ParseDate reads a YYYY-MM-DD date as written in documents.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(version.DateLayout, strings.TrimSpace(s))
}
