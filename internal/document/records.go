package document

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ErrMissingField is returned when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// Component is the typed view of a component OVERVIEW.md.
type Component struct {
	ID       string
	Name     string
	Purpose  string
	Scope    string
	Status   string
	Timeline string
	Goals    string
	Owner    string
	// Fields holds every field keyed by FieldKey, including the above.
	Fields map[string]string
}

// ParseComponent reads a component overview. Name is required; a missing
// name field falls back to the "Component: X" title before failing.
func ParseComponent(id, content string) (*Component, error) {
	fields := FieldMap(content)
	name := fields["name"]
	if name == "" {
		if t, ok := strings.CutPrefix(Title(content), "Component:"); ok {
			name = strings.TrimSpace(t)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("component %q: %w: Name", id, ErrMissingField)
	}
	if _, ok := fields["name"]; !ok {
		fields["name"] = name
	}
	return &Component{
		ID:       id,
		Name:     name,
		Purpose:  fields["purpose"],
		Scope:    fields["scope"],
		Status:   fields["status"],
		Timeline: fields["timeline"],
		Goals:    fields["goals"],
		Owner:    fields["owner"],
		Fields:   fields,
	}, nil
}

// Goal is the typed view of a major-goal GOAL-STATUS.md.
type Goal struct {
	ID          string
	Name        string
	Component   string
	Status      string
	Priority    string
	Tier        string
	Progress    int
	Owner       string
	LastUpdated string
	// Dependencies are goal references from the Dependencies (or Depends
	// On) field: "001-login" within the component, "auth/001-login" across.
	Dependencies []string
	Path         string
}

// ParseGoal reads a goal status document. Name and Status are required.
func ParseGoal(p, content string) (*Goal, error) {
	fields := FieldMap(content)
	name := fields["name"]
	if name == "" {
		if t, ok := strings.CutPrefix(Title(content), "Goal:"); ok {
			name = strings.TrimSpace(t)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("goal %s: %w: Name", p, ErrMissingField)
	}
	status := fields["status"]
	if status == "" {
		return nil, fmt.Errorf("goal %s: %w: Status", p, ErrMissingField)
	}

	component := fields["component"]
	if component == "" {
		component, _ = ComponentIDFromPath(p)
	}

	deps := fields["dependencies"]
	if deps == "" {
		deps = fields["dependson"]
	}
	return &Goal{
		ID:           fields["goalid"],
		Name:         name,
		Component:    component,
		Status:       status,
		Priority:     fields["priority"],
		Tier:         fields["tier"],
		Progress:     ParsePercent(fields["progress"]),
		Owner:        fields["owner"],
		LastUpdated:  fields["lastupdated"],
		Dependencies: ParseList(deps),
		Path:         p,
	}, nil
}

// SubGoal is the typed view of a SUB-GOAL-STATUS.md.
type SubGoal struct {
	ID       string
	Name     string
	Status   string
	Progress int
	Path     string
}

// ParseSubGoal reads a sub-goal status document. Only a name is required
// (field or "Sub-goal: X" title); the status defaults to Planning.
func ParseSubGoal(p, content string) (*SubGoal, error) {
	fields := FieldMap(content)
	name := fields["name"]
	if name == "" {
		title := Title(content)
		if _, rest, ok := strings.Cut(title, ":"); ok {
			name = strings.TrimSpace(rest)
		} else {
			name = title
		}
	}
	if name == "" {
		return nil, fmt.Errorf("sub-goal %s: %w: Name", p, ErrMissingField)
	}
	status := fields["status"]
	if status == "" {
		status = "Planning"
	}
	return &SubGoal{
		ID:       path.Base(path.Dir(p)),
		Name:     name,
		Status:   status,
		Progress: ParsePercent(fields["progress"]),
		Path:     p,
	}, nil
}

// ParseList splits a comma or semicolon separated field value. "None", "-"
// and "N/A" mean an empty list.
func ParseList(s string) []string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-", "n/a", "tbd":
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParsePercent reads "40%", "40" or "40 %" and clamps to 0..100.
// Unparseable input yields 0.
func ParsePercent(s string) int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return int(n)
}

// Completed reports whether the goal's status marks it as finished.
func (g *Goal) Completed() bool {
	return CompletedStatus(g.Status)
}

// CompletedStatus reports whether status means finished.
func CompletedStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "complete", "done":
		return true
	}
	return false
}
