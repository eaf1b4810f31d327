// Package cascade updates a component overview and lists the goal documents
// that the change may ripple into.
//
// The cascade is advisory: dependent goals are recorded with Executed set
// to false and are never rewritten here.
package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/journal"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

var (
	// ErrComponentNotFound is returned when the component overview is missing.
	ErrComponentNotFound = errors.New("component not found")
	// ErrConflictingUpdates is returned when two update keys name the same field.
	ErrConflictingUpdates = errors.New("conflicting updates")
)

// majorFields and minorFields drive change-type inference. Any other
// changed field is a patch.
var (
	majorFields = map[string]bool{"name": true, "purpose": true, "scope": true}
	minorFields = map[string]bool{"status": true, "timeline": true, "goals": true}
)

// Request is an update to one component.
type Request struct {
	ComponentID string
	Updates     map[string]any
	// ChangeType is inferred from the changed fields when empty.
	ChangeType     version.ChangeType
	CascadeToGoals bool
	DryRun         bool
	Author         string
}

// Change is one field that differs from the current document.
type Change struct {
	Field         string `json:"field"`
	PreviousValue string `json:"previousValue"`
	NewValue      string `json:"newValue"`
}

// Update is a dependent document that may need to follow the component.
type Update struct {
	DocumentPath string        `json:"documentPath"`
	DocumentType document.Type `json:"documentType"`
	Description  string        `json:"description"`
	Executed     bool          `json:"executed"`
}

// Result reports a component update.
type Result struct {
	ComponentID     string             `json:"componentId"`
	DocumentPath    string             `json:"documentPath"`
	PreviousVersion float64            `json:"previousVersion"`
	NewVersion      float64            `json:"newVersion"`
	ChangeType      version.ChangeType `json:"changeType"`
	Changes         []Change           `json:"changes"`
	CascadedUpdates []Update           `json:"cascadedUpdates"`
	Warnings        []string           `json:"warnings"`
	DryRun          bool               `json:"dryRun"`
	BackupPath      string             `json:"backupPath,omitempty"`
}

// Service performs component updates.
type Service struct {
	store   docstore.Store
	backups *backup.Manager
	journal *journal.Journal
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewService wires a Service. journal and m may be nil.
func NewService(store docstore.Store, backups *backup.Manager, j *journal.Journal, log zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, backups: backups, journal: j, log: log, metrics: m}
}

// UpdateComponentVersion diffs req.Updates against the component, bumps its
// version and rewrites it under backup protection. On failure the returned
// Result is still populated with whatever warnings explain side effects.
func (s *Service) UpdateComponentVersion(ctx context.Context, req Request) (*Result, error) {
	p := document.ComponentPath(req.ComponentID)
	res := &Result{
		ComponentID:     req.ComponentID,
		DocumentPath:    p,
		Changes:         []Change{},
		CascadedUpdates: []Update{},
		Warnings:        []string{},
		DryRun:          req.DryRun,
	}
	if strings.TrimSpace(req.ComponentID) == "" {
		return res, errors.New("componentId is required")
	}
	if len(req.Updates) == 0 {
		return res, errors.New("updates must contain at least one field")
	}

	if groups := Conflicts(req.Updates); len(groups) > 0 {
		for _, g := range groups {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Keys %s all update the same field; send only one", strings.Join(g, ", ")))
		}
		return res, fmt.Errorf("%w: %d field(s) updated more than once", ErrConflictingUpdates, len(groups))
	}

	content, err := s.store.Read(p)
	if err != nil {
		if docstore.IsNotFound(err) {
			return res, fmt.Errorf("%w: %s (expected %s)", ErrComponentNotFound, req.ComponentID, p)
		}
		return res, err
	}
	comp, err := document.ParseComponent(req.ComponentID, content)
	if err != nil {
		return res, err
	}

	res.PreviousVersion = version.ExtractVersion(content)
	res.NewVersion = res.PreviousVersion

	changes, ignored := Diff(comp.Fields, req.Updates)
	res.Changes = changes
	for _, key := range ignored {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Ignored update to %q: the version is managed automatically", key))
	}
	if len(changes) == 0 {
		res.Warnings = append(res.Warnings, "No field changes detected; the component was left untouched")
		return res, nil
	}

	res.ChangeType = req.ChangeType
	if res.ChangeType == "" {
		res.ChangeType = InferChangeType(changes)
	}
	res.NewVersion = version.CalculateNewVersion(res.PreviousVersion, res.ChangeType)

	if req.DryRun {
		res.Warnings = append(res.Warnings, "Dry run: no changes were made")
		return res, nil
	}

	if req.CascadeToGoals {
		cascaded, err := s.dependentGoals(req.ComponentID, changes)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Could not list dependent goals: %v", err))
		}
		res.CascadedUpdates = cascaded
	}

	author := req.Author
	if author == "" {
		author = version.DefaultAuthor
	}
	entry := version.Entry{Version: res.NewVersion, Changes: Summarize(changes), Author: author}

	s.recordSnapshot(ctx, res, journal.Snapshot{
		ProjectRoot:  s.store.Root(),
		DocumentPath: p,
		Version:      res.PreviousVersion,
		Content:      content,
		Changes:      "Before " + entry.Changes,
		Author:       author,
	})

	mut, err := s.backups.Mutate(p,
		func(original string) (string, error) {
			updated := original
			for _, c := range changes {
				updated = document.SetField(updated, document.LabelFor(c.Field), c.NewValue)
			}
			return version.ApplyVersion(updated, entry), nil
		},
		func(written string) error {
			if _, err := document.ParseComponent(req.ComponentID, written); err != nil {
				return err
			}
			if got := version.ExtractVersion(written); !version.Equal(got, res.NewVersion) {
				return fmt.Errorf("version reads back as %s, want %s", version.FormatVersion(got), version.FormatVersion(res.NewVersion))
			}
			return nil
		},
	)
	if mut != nil && mut.BackupRetained {
		res.BackupPath = mut.BackupPath
		res.Warnings = append(res.Warnings, "Backup created: "+mut.BackupPath)
	}
	if err != nil {
		res.CascadedUpdates = []Update{}
		return res, err
	}

	s.recordSnapshot(ctx, res, journal.Snapshot{
		ProjectRoot:  s.store.Root(),
		DocumentPath: p,
		Version:      res.NewVersion,
		Content:      mut.Updated,
		Changes:      entry.Changes,
		Author:       author,
	})
	s.metrics.RecordVersionBump(string(res.ChangeType))
	s.metrics.RecordCascade(len(res.CascadedUpdates))
	s.log.Info().
		Str("component", req.ComponentID).
		Str("from", version.FormatVersion(res.PreviousVersion)).
		Str("to", version.FormatVersion(res.NewVersion)).
		Int("cascaded", len(res.CascadedUpdates)).
		Msg("component updated")
	return res, nil
}

func (s *Service) recordSnapshot(ctx context.Context, res *Result, snap journal.Snapshot) {
	if _, err := s.journal.Record(ctx, snap); err != nil {
		if !errors.Is(err, journal.ErrUnavailable) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Snapshot of version %s not recorded: %v", version.FormatVersion(snap.Version), err))
		}
		s.log.Debug().Err(err).Str("path", snap.DocumentPath).Msg("snapshot not recorded")
	}
}

func (s *Service) dependentGoals(componentID string, changes []Change) ([]Update, error) {
	goals, err := s.store.Glob(document.GoalsGlob(document.ComponentDir(componentID)))
	if err != nil {
		return []Update{}, err
	}
	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	desc := fmt.Sprintf("Review against component %s changes to %s", componentID, strings.Join(fields, ", "))

	out := make([]Update, 0, len(goals))
	for _, g := range goals {
		out = append(out, Update{
			DocumentPath: g,
			DocumentType: document.TypeMajorGoal,
			Description:  desc,
			Executed:     false,
		})
	}
	return out, nil
}

// Conflicts groups the update keys that normalize to the same field, such
// as "Status" and "status". Each group is sorted; groups are ordered by
// field.
func Conflicts(updates map[string]any) [][]string {
	byField := map[string][]string{}
	for k := range updates {
		if field := document.FieldKey(k); field != "" {
			byField[field] = append(byField[field], k)
		}
	}
	fields := make([]string, 0, len(byField))
	for f, keys := range byField {
		if len(keys) > 1 {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	groups := make([][]string, 0, len(fields))
	for _, f := range fields {
		keys := byField[f]
		sort.Strings(keys)
		groups = append(groups, keys)
	}
	return groups
}

// Diff compares proposed updates with the current field values by their
// canonical string form. Keys are normalized with document.FieldKey and
// changes are returned in key order; when several keys name one field only
// the first in key order is used (see Conflicts). Updates to the version
// itself are returned in ignored.
func Diff(current map[string]string, updates map[string]any) (changes []Change, ignored []string) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes = []Change{}
	seen := map[string]bool{}
	for _, k := range keys {
		field := document.FieldKey(k)
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		if field == "version" {
			ignored = append(ignored, k)
			continue
		}
		next := Canonical(updates[k])
		prev := Canonical(current[field])
		if next == prev {
			continue
		}
		changes = append(changes, Change{Field: field, PreviousValue: prev, NewValue: next})
	}
	return changes, ignored
}

// Canonical renders an update value the way it is written into the
// document: scalars via cast, lists joined with ", " and objects as JSON.
func Canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Canonical(e)
		}
		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = strings.TrimSpace(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		b, jerr := json.Marshal(v)
		if jerr != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return strings.TrimSpace(s)
}

// InferChangeType picks the change type from the changed field names only.
func InferChangeType(changes []Change) version.ChangeType {
	ct := version.Patch
	for _, c := range changes {
		switch {
		case majorFields[c.Field]:
			return version.Major
		case minorFields[c.Field]:
			ct = version.Minor
		}
	}
	return ct
}

// Summarize renders changes as a one-line history note.
func Summarize(changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		prev := c.PreviousValue
		if prev == "" {
			prev = "(empty)"
		}
		parts[i] = fmt.Sprintf("%s: %s -> %s", document.LabelFor(c.Field), prev, c.NewValue)
	}
	return "Component updated: " + strings.Join(parts, "; ")
}
