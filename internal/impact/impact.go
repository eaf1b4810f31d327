// Package impact works out which planning documents a change may affect.
//
// Analysis is advisory: it never blocks a mutation. Propagation is driven
// by an explicit rule table keyed by the changed document's type.
package impact

import (
	"fmt"
	"path"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/version"
)

// Level grades how strongly a dependent document is affected.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Document is one affected document. Results are computed fresh per call
// and never persisted.
type Document struct {
	DocumentType   document.Type `json:"documentType"`
	DocumentPath   string        `json:"documentPath"`
	CurrentVersion float64       `json:"currentVersion"`
	ImpactLevel    Level         `json:"impactLevel"`
	ImpactReason   string        `json:"impactReason"`
	RequiresReview bool          `json:"requiresReview"`
}

// Summary aggregates an analysis.
type Summary struct {
	TotalAffected       int `json:"totalAffected"`
	HighImpactCount     int `json:"highImpactCount"`
	MediumImpactCount   int `json:"mediumImpactCount"`
	LowImpactCount      int `json:"lowImpactCount"`
	RequiresReviewCount int `json:"requiresReviewCount"`
}

// Request describes the change under analysis.
type Request struct {
	DocumentType    document.Type
	ChangedPath     string
	ProposedChanges string
	ChangeType      version.ChangeType
}

// Result is the analysis output.
type Result struct {
	ImpactedDocuments []Document `json:"impactedDocuments"`
	Summary           Summary    `json:"summary"`
	Recommendations   []string   `json:"recommendations"`
	Warnings          []string   `json:"warnings"`
}

// rule describes one set of dependents for a changed document type.
type rule struct {
	// pattern returns the glob of dependents given the changed path.
	pattern   func(changed string) string
	dependent document.Type
	level     Level
	reason    string
	review    bool
}

// RoadmapNotImplemented is the warning emitted for roadmap changes, whose
// propagation rules are not defined.
const RoadmapNotImplemented = "Roadmap impact analysis not fully implemented: dependent documents were not evaluated"

var rules = map[document.Type][]rule{
	document.TypeProjectOverview: {
		{
			pattern:   func(string) string { return document.ComponentsGlob },
			dependent: document.TypeComponent,
			level:     LevelHigh,
			reason:    "Project vision or scope changed",
			review:    true,
		},
		{
			pattern:   func(string) string { return document.RoadmapPath },
			dependent: document.TypeRoadmap,
			level:     LevelHigh,
			reason:    "Project vision or scope changed; roadmap priorities may shift",
			review:    true,
		},
	},
	document.TypeComponent: {
		{
			pattern:   func(changed string) string { return document.GoalsGlob(path.Dir(changed)) },
			dependent: document.TypeMajorGoal,
			level:     LevelMedium,
			reason:    "Parent component changed",
			review:    true,
		},
	},
	document.TypeMajorGoal: {
		{
			pattern:   func(changed string) string { return document.SubGoalsGlob(path.Dir(changed)) },
			dependent: document.TypeSubGoal,
			level:     LevelLow,
			reason:    "Parent goal changed",
			review:    false,
		},
	},
	document.TypeRoadmap: nil,
	document.TypeSubGoal: nil,
}

// Analyze evaluates the rule table for req against the store.
func Analyze(store docstore.Store, req Request) (*Result, error) {
	if !document.ValidType(req.DocumentType) {
		return nil, fmt.Errorf("unknown document type %q: must be one of: project-overview, component, major-goal, roadmap, sub-goal", req.DocumentType)
	}

	res := &Result{
		ImpactedDocuments: []Document{},
		Recommendations:   []string{},
		Warnings:          []string{},
	}

	if req.ChangedPath != "" {
		exists, err := store.Exists(req.ChangedPath)
		if err != nil {
			return nil, err
		}
		if !exists {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Changed document not found: %s", req.ChangedPath))
		}
	}

	switch req.DocumentType {
	case document.TypeRoadmap:
		res.Warnings = append(res.Warnings, RoadmapNotImplemented)
	case document.TypeSubGoal:
		res.Warnings = append(res.Warnings, "Sub-goals have no dependent documents")
	}

	for _, r := range rules[req.DocumentType] {
		matches, err := store.Glob(r.pattern(req.ChangedPath))
		if err != nil {
			return nil, fmt.Errorf("finding %s documents: %w", r.dependent, err)
		}
		for _, p := range matches {
			if p == req.ChangedPath {
				continue
			}
			doc := Document{
				DocumentType:   r.dependent,
				DocumentPath:   p,
				CurrentVersion: version.DefaultVersion,
				ImpactLevel:    r.level,
				ImpactReason:   r.reason,
				RequiresReview: r.review,
			}
			if content, err := store.Read(p); err == nil {
				doc.CurrentVersion = version.ExtractVersion(content)
			} else {
				res.Warnings = append(res.Warnings, fmt.Sprintf("Could not read %s: %v", p, err))
			}
			res.ImpactedDocuments = append(res.ImpactedDocuments, doc)
		}
	}

	res.Summary = summarize(res.ImpactedDocuments)
	res.Recommendations = recommend(res.Summary, req.ChangeType)
	return res, nil
}

func summarize(docs []Document) Summary {
	s := Summary{TotalAffected: len(docs)}
	for _, d := range docs {
		switch d.ImpactLevel {
		case LevelHigh:
			s.HighImpactCount++
		case LevelMedium:
			s.MediumImpactCount++
		case LevelLow:
			s.LowImpactCount++
		}
		if d.RequiresReview {
			s.RequiresReviewCount++
		}
	}
	return s
}

// splitThreshold is the affected-document count above which a major change
// should be split.
const splitThreshold = 5

func recommend(s Summary, ct version.ChangeType) []string {
	recs := []string{}
	if s.HighImpactCount > 0 {
		recs = append(recs, fmt.Sprintf("Create a backup before applying this change: %d high-impact document(s) affected", s.HighImpactCount))
	}
	if ct == version.Major && s.TotalAffected > splitThreshold {
		recs = append(recs, fmt.Sprintf("Consider splitting this major change into smaller updates: %d documents affected", s.TotalAffected))
	}
	if s.RequiresReviewCount > 0 {
		recs = append(recs, fmt.Sprintf("Manually review %d document(s) flagged for review", s.RequiresReviewCount))
	}
	return recs
}

// DocumentTypeFromPath infers the type of a document from its place in the
// planning hierarchy.
func DocumentTypeFromPath(p string) (document.Type, error) {
	t, ok := document.TypeFromPath(p)
	if !ok {
		return "", fmt.Errorf("cannot infer document type from %q: pass documentType explicitly", p)
	}
	return t, nil
}
