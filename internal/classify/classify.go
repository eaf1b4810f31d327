// Package classify infers frontmatter for markdown files that have none.
//
// Inference is keyword matching over fixed rule tables. The first matching
// rule wins; tables are ordered from most to least specific.
package classify

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"gopkg.in/yaml.v3"
)

// MaxTags caps the number of inferred tags.
const MaxTags = 8

// contentSample is how much of a document the content rules look at.
const contentSample = 500

// Input is what the rules see.
type Input struct {
	// Path is relative to the project root.
	Path    string
	Name    string // lowercased base name
	Content string // lowercased leading sample
}

func newInput(p, content string) Input {
	sample := content
	if len(sample) > contentSample {
		sample = sample[:contentSample]
	}
	return Input{Path: p, Name: strings.ToLower(path.Base(p)), Content: strings.ToLower(sample)}
}

// Rule assigns Value when Match holds.
type Rule struct {
	Match func(Input) bool
	Value string
}

func nameIs(names ...string) func(Input) bool {
	return func(in Input) bool {
		for _, n := range names {
			if in.Name == n {
				return true
			}
		}
		return false
	}
}

func nameHas(words ...string) func(Input) bool {
	return func(in Input) bool {
		for _, w := range words {
			if strings.Contains(in.Name, w) {
				return true
			}
		}
		return false
	}
}

func contentHas(words ...string) func(Input) bool {
	return func(in Input) bool {
		for _, w := range words {
			if strings.Contains(in.Content, w) {
				return true
			}
		}
		return false
	}
}

func planningType(t document.Type) func(Input) bool {
	return func(in Input) bool {
		got, ok := document.TypeFromPath(in.Path)
		return ok && got == t
	}
}

func always(Input) bool { return true }

var typeRules = []Rule{
	{planningType(document.TypeProjectOverview), string(document.TypeProjectOverview)},
	{planningType(document.TypeRoadmap), string(document.TypeRoadmap)},
	{planningType(document.TypeComponent), string(document.TypeComponent)},
	{planningType(document.TypeMajorGoal), string(document.TypeMajorGoal)},
	{planningType(document.TypeSubGoal), string(document.TypeSubGoal)},
	{nameIs("readme.md"), "readme"},
	{nameHas("guide", "workflow", "installation", "setup"), "guide"},
	{nameHas("spec", "test"), "specification"},
	{nameHas("template"), "template"},
	{nameHas("troubleshooting"), "reference"},
	{always, "reference"},
}

var statusRules = []Rule{
	{nameHas("wip", "draft"), "draft"},
	{contentHas("complete", "production ready"), "completed"},
	{nameIs("readme.md"), "completed"},
	{nameHas("template", "test"), "in-progress"},
	{always, "completed"},
}

// priorityRules see the inferred type in Input.Content's place via
// priorityInput, so type-based rules can match.
var priorityRules = []Rule{
	{nameIs("readme.md"), "high"},
	{nameHas("installation", "setup", "troubleshooting"), "high"},
	{func(in Input) bool { return in.Content == "guide" || in.Content == "specification" }, "high"},
	{always, "medium"},
}

// TagRule adds Tag when any keyword appears in the chosen source.
type TagRule struct {
	Tag       string
	Keywords  []string
	InContent bool
}

var tagRules = []TagRule{
	{Tag: "installation", Keywords: []string{"installation", "setup"}},
	{Tag: "workflow", Keywords: []string{"workflow", "process"}},
	{Tag: "guide", Keywords: []string{"guide", "tutorial"}},
	{Tag: "specification", Keywords: []string{"specification", "spec"}},
	{Tag: "troubleshooting", Keywords: []string{"troubleshooting", "debugging"}},
	{Tag: "template", Keywords: []string{"template", "pattern"}},
	{Tag: "test", Keywords: []string{"testing", "validation"}},
	{Tag: "integration", Keywords: []string{"integration", "cross-server"}},
	{Tag: "quick", Keywords: []string{"quick-start", "getting-started"}},
	{Tag: "automation", Keywords: []string{"automat", "script"}, InContent: true},
	{Tag: "configuration", Keywords: []string{"config", "settings"}, InContent: true},
	{Tag: "deployment", Keywords: []string{"deploy", "production"}, InContent: true},
	{Tag: "documentation", Keywords: []string{"document", "readme"}, InContent: true},
	{Tag: "api", Keywords: []string{"api", "endpoint"}, InContent: true},
	{Tag: "workflow", Keywords: []string{"workflow", "process"}, InContent: true},
	{Tag: "planning", Keywords: []string{"goal", "roadmap", "milestone"}, InContent: true},
}

func first(rules []Rule, in Input) string {
	for _, r := range rules {
		if r.Match(in) {
			return r.Value
		}
	}
	return ""
}

// Frontmatter is the inferred metadata block.
type Frontmatter struct {
	Type     string   `yaml:"type"`
	Project  string   `yaml:"project"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags,flow"`
	Status   string   `yaml:"status"`
	Priority string   `yaml:"priority"`
}

// Infer builds the frontmatter for the document at p.
func Infer(p, project, content string) Frontmatter {
	in := newInput(p, content)
	docType := first(typeRules, in)

	category := "docs"
	if document.ValidType(document.Type(docType)) {
		category = "planning"
	}

	priorityIn := in
	priorityIn.Content = docType

	return Frontmatter{
		Type:     docType,
		Project:  project,
		Category: category,
		Tags:     Tags(in, project),
		Status:   first(statusRules, in),
		Priority: first(priorityRules, priorityIn),
	}
}

// Tags returns the sorted, de-duplicated tags for in, capped at MaxTags.
func Tags(in Input, project string) []string {
	set := map[string]bool{}
	for _, r := range tagRules {
		src := in.Name
		if r.InContent {
			src = in.Content
		}
		for _, kw := range r.Keywords {
			if strings.Contains(src, kw) {
				set[r.Tag] = true
				break
			}
		}
	}
	if slug := document.Slugify(project); slug != "unnamed" {
		set[slug] = true
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

// Render serializes fm as a frontmatter block followed by a blank line.
func Render(fm Frontmatter) (string, error) {
	b, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	return "---\n" + string(b) + "---\n\n", nil
}

// Lister is a store that can enumerate its markdown documents.
type Lister interface {
	docstore.Store
	ListMarkdown() ([]string, error)
}

// Options controls Run.
type Options struct {
	Project string
	DryRun  bool
	// Limit caps how many files are processed; 0 means no cap.
	Limit int
}

// FileResult is one processed file.
type FileResult struct {
	Path        string      `json:"path"`
	Frontmatter Frontmatter `json:"frontmatter"`
}

// Report summarizes a Run.
type Report struct {
	Processed []FileResult `json:"processed"`
	Skipped   int          `json:"skipped"`
	Errors    []string     `json:"errors"`
	DryRun    bool         `json:"dryRun"`
}

// Run adds inferred frontmatter to every markdown file below the store root
// that lacks one. With DryRun nothing is written.
func Run(store Lister, opts Options) (*Report, error) {
	files, err := store.ListMarkdown()
	if err != nil {
		return nil, err
	}
	project := opts.Project
	if project == "" {
		project = path.Base(strings.ReplaceAll(store.Root(), "\\", "/"))
	}

	rep := &Report{Processed: []FileResult{}, Errors: []string{}, DryRun: opts.DryRun}
	for _, p := range files {
		if opts.Limit > 0 && len(rep.Processed) >= opts.Limit {
			break
		}
		content, err := store.Read(p)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if document.HasFrontmatter(content) {
			rep.Skipped++
			continue
		}
		fm := Infer(p, project, content)
		block, err := Render(fm)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if !opts.DryRun {
			if err := store.Write(p, block+content); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", p, err))
				continue
			}
		}
		rep.Processed = append(rep.Processed, FileResult{Path: p, Frontmatter: fm})
	}
	return rep, nil
}
