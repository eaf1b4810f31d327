// Package templates renders planning documents from embedded markdown
// templates.
//
// Templates only see typed data structs; missing values fall back through
// the "default" helper so an empty struct still renders a usable skeleton.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.md.tmpl
var files embed.FS

// Template names.
const (
	ProjectOverview = "project-overview.md.tmpl"
	Roadmap         = "roadmap.md.tmpl"
	Component       = "component.md.tmpl"
	Goal            = "goal.md.tmpl"
	Dashboard       = "dashboard.md.tmpl"
	Documentation   = "documentation.md.tmpl"
)

// Renderer turns template data into a document.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// EmbedRenderer renders the templates compiled into the binary.
type EmbedRenderer struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"default": func(fallback, v any) any {
		switch t := v.(type) {
		case nil:
			return fallback
		case string:
			if strings.TrimSpace(t) == "" {
				return fallback
			}
		case int:
			if t == 0 {
				return fallback
			}
		}
		return v
	},
	"join": strings.Join,
	"cell": func(s string) string {
		return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
	},
}

// NewRenderer parses every embedded template.
func NewRenderer() (*EmbedRenderer, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=zero").ParseFS(files, "*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &EmbedRenderer{tmpl: t}, nil
}

// Render executes the named template.
func (r *EmbedRenderer) Render(name string, data any) (string, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// ProjectOverviewData fills project-overview.md.tmpl.
type ProjectOverviewData struct {
	Name        string
	Description string
	Vision      string
	Date        string
	Author      string
}

// RoadmapData fills roadmap.md.tmpl.
type RoadmapData struct {
	Name   string
	Date   string
	Author string
}

// ComponentData fills component.md.tmpl.
type ComponentData struct {
	ID       string
	Name     string
	Purpose  string
	Scope    string
	Status   string
	Timeline string
	Owner    string
	Date     string
	Author   string
}

// GoalData fills goal.md.tmpl.
type GoalData struct {
	ID          string
	Name        string
	Component   string
	Description string
	Status      string
	Priority    string
	Tier        string
	Owner       string
	// Dependencies are goal references such as "001-login" or
	// "auth/001-login".
	Dependencies []string
	Date         string
	Author       string
}
