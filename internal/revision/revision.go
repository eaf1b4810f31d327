// Package revision bumps, rolls back and reports the version of any
// planning document.
package revision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/backup"
	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/impact"
	"github.com/HendryAvila/planmcp/internal/journal"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/rs/zerolog"
)

// timeNow is swapped in tests to pin history and Last Updated dates.
var timeNow = time.Now

// ErrVersionNotFound matches (via errors.Is) rollback targets missing from
// the document's Version History.
var ErrVersionNotFound = errors.New("version not found in history")

// VersionNotFoundError names the missing rollback target.
type VersionNotFoundError struct {
	Version float64
}

func (e *VersionNotFoundError) Error() string {
	return "Version " + version.FormatVersion(e.Version) + " not found in history"
}

func (e *VersionNotFoundError) Is(target error) bool { return target == ErrVersionNotFound }

// Service performs version operations on single documents.
type Service struct {
	store   docstore.Store
	backups *backup.Manager
	journal *journal.Journal
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewService wires a Service. j and m may be nil.
func NewService(store docstore.Store, backups *backup.Manager, j *journal.Journal, log zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, backups: backups, journal: j, log: log, metrics: m}
}

// UpdateRequest bumps a document's version.
type UpdateRequest struct {
	DocumentPath string
	// DocumentType is inferred from DocumentPath when empty.
	DocumentType      document.Type
	ChangeType        version.ChangeType
	ChangeDescription string
	Author            string
	CreateBackup      bool
}

// UpdateResult reports a version bump.
type UpdateResult struct {
	DocumentPath    string             `json:"documentPath"`
	DocumentType    document.Type      `json:"documentType"`
	PreviousVersion float64            `json:"previousVersion"`
	NewVersion      float64            `json:"newVersion"`
	ChangeType      version.ChangeType `json:"changeType"`
	ImpactSummary   impact.Summary     `json:"impactSummary"`
	Recommendations []string           `json:"recommendations"`
	Warnings        []string           `json:"warnings"`
	BackupPath      string             `json:"backupPath,omitempty"`
}

// UpdateDocumentVersion analyzes the impact of a change, then bumps the
// document's version and adds a history row. The analysis is advisory and
// never stops the update.
func (s *Service) UpdateDocumentVersion(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	res := &UpdateResult{
		DocumentPath:    req.DocumentPath,
		DocumentType:    req.DocumentType,
		ChangeType:      req.ChangeType,
		Recommendations: []string{},
		Warnings:        []string{},
	}
	ct, err := version.ParseChangeType(string(req.ChangeType))
	if err != nil {
		return res, err
	}
	req.ChangeType = ct
	res.ChangeType = ct
	if strings.TrimSpace(req.ChangeDescription) == "" {
		return res, errors.New("changeDescription is required")
	}
	if res.DocumentType == "" {
		t, err := impact.DocumentTypeFromPath(req.DocumentPath)
		if err != nil {
			return res, err
		}
		res.DocumentType = t
	}

	content, err := s.store.Read(req.DocumentPath)
	if err != nil {
		return res, err
	}
	res.PreviousVersion = version.ExtractVersion(content)
	res.NewVersion = version.CalculateNewVersion(res.PreviousVersion, req.ChangeType)

	analysis, err := impact.Analyze(s.store, impact.Request{
		DocumentType:    res.DocumentType,
		ChangedPath:     req.DocumentPath,
		ProposedChanges: req.ChangeDescription,
		ChangeType:      req.ChangeType,
	})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Impact analysis failed: %v", err))
	} else {
		res.ImpactSummary = analysis.Summary
		res.Recommendations = analysis.Recommendations
		res.Warnings = append(res.Warnings, analysis.Warnings...)
	}

	entry := version.Entry{
		Version: res.NewVersion,
		Date:    timeNow().Format(version.DateLayout),
		Changes: req.ChangeDescription,
		Author:  authorOr(req.Author),
	}
	s.recordSnapshot(ctx, &res.Warnings, req.DocumentPath, res.PreviousVersion, content, "Before "+req.ChangeDescription, entry.Author)

	mut, err := s.backups.Mutate(req.DocumentPath,
		func(original string) (string, error) {
			return touch(version.ApplyVersion(original, entry), res.DocumentType, entry.Date), nil
		},
		expectVersion(res.NewVersion),
		backupOptions(req.CreateBackup)...,
	)
	if mut.BackupRetained {
		res.BackupPath = mut.BackupPath
		res.Warnings = append(res.Warnings, "Backup created: "+mut.BackupPath)
	}
	if err != nil {
		return res, err
	}
	if !version.HasHistoryTable(mut.Updated) {
		res.Warnings = append(res.Warnings, "Document has no Version History table; the history row was not added")
	}

	s.recordSnapshot(ctx, &res.Warnings, req.DocumentPath, res.NewVersion, mut.Updated, req.ChangeDescription, entry.Author)
	s.metrics.RecordVersionBump(string(req.ChangeType))
	s.log.Info().
		Str("path", req.DocumentPath).
		Str("from", version.FormatVersion(res.PreviousVersion)).
		Str("to", version.FormatVersion(res.NewVersion)).
		Msg("document version updated")
	return res, nil
}

// RollbackRequest restores a document to an earlier version.
type RollbackRequest struct {
	DocumentPath    string
	TargetVersion   float64
	Reason          string
	Author          string
	CreateBackup    bool
	CascadeRollback bool
}

// RollbackResult reports a rollback.
type RollbackResult struct {
	DocumentPath    string  `json:"documentPath"`
	PreviousVersion float64 `json:"previousVersion"`
	RestoredVersion float64 `json:"restoredVersion"`
	NewVersion      float64 `json:"newVersion"`
	// CascadeCandidates are dependents that may also need rolling back.
	// They are listed, never changed.
	CascadeCandidates []impact.Document `json:"cascadeCandidates"`
	Warnings          []string          `json:"warnings"`
	BackupPath        string            `json:"backupPath,omitempty"`
}

// RollbackVersion restores the content recorded for TargetVersion. The
// current history table is kept and the version moves forward by a patch
// with a "Rolled back to version X" row, so versions never decrease.
func (s *Service) RollbackVersion(ctx context.Context, req RollbackRequest) (*RollbackResult, error) {
	res := &RollbackResult{
		DocumentPath:      req.DocumentPath,
		RestoredVersion:   req.TargetVersion,
		CascadeCandidates: []impact.Document{},
		Warnings:          []string{},
	}
	target := version.FormatVersion(req.TargetVersion)

	current, err := s.store.Read(req.DocumentPath)
	if err != nil {
		return res, err
	}
	res.PreviousVersion = version.ExtractVersion(current)
	res.NewVersion = res.PreviousVersion

	if _, ok := version.FindEntry(version.ParseHistory(current), req.TargetVersion); !ok {
		return res, &VersionNotFoundError{Version: req.TargetVersion}
	}
	snap, err := s.journal.Find(ctx, s.store.Root(), req.DocumentPath, req.TargetVersion)
	if err != nil {
		return res, fmt.Errorf("cannot restore version %s: %w", target, err)
	}

	newVersion := version.CalculateNewVersion(res.PreviousVersion, version.Patch)
	note := "Rolled back to version " + target
	if r := strings.TrimSpace(req.Reason); r != "" {
		note += ": " + r
	}
	entry := version.Entry{
		Version: newVersion,
		Date:    timeNow().Format(version.DateLayout),
		Changes: note,
		Author:  authorOr(req.Author),
	}
	docType, _ := impact.DocumentTypeFromPath(req.DocumentPath)

	s.recordSnapshot(ctx, &res.Warnings, req.DocumentPath, res.PreviousVersion, current, "Before "+note, entry.Author)

	mut, err := s.backups.Mutate(req.DocumentPath,
		func(live string) (string, error) {
			restored := version.ReplaceHistorySection(snap.Content, live)
			return touch(version.ApplyVersion(restored, entry), docType, entry.Date), nil
		},
		expectVersion(newVersion),
		backupOptions(req.CreateBackup)...,
	)
	if mut.BackupRetained {
		res.BackupPath = mut.BackupPath
		res.Warnings = append(res.Warnings, "Backup created: "+mut.BackupPath)
	}
	if err != nil {
		return res, err
	}
	res.NewVersion = newVersion
	s.recordSnapshot(ctx, &res.Warnings, req.DocumentPath, newVersion, mut.Updated, note, entry.Author)
	s.metrics.RecordVersionBump("rollback")

	if req.CascadeRollback {
		s.cascadeCandidates(res)
	}
	s.log.Info().Str("path", req.DocumentPath).Str("target", target).
		Str("version", version.FormatVersion(newVersion)).Msg("document rolled back")
	return res, nil
}

func (s *Service) cascadeCandidates(res *RollbackResult) {
	t, err := impact.DocumentTypeFromPath(res.DocumentPath)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Cascade rollback skipped: %v", err))
		return
	}
	analysis, err := impact.Analyze(s.store, impact.Request{DocumentType: t, ChangedPath: res.DocumentPath, ChangeType: version.Patch})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Cascade rollback skipped: %v", err))
		return
	}
	res.CascadeCandidates = analysis.ImpactedDocuments
	if n := len(analysis.ImpactedDocuments); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Cascade rollback is advisory: review %d dependent document(s) manually", n))
	}
}

// HistoryResult lists a document's versions.
type HistoryResult struct {
	DocumentPath   string          `json:"documentPath"`
	CurrentVersion float64         `json:"currentVersion"`
	Entries        []version.Entry `json:"entries"`
	TotalEntries   int             `json:"totalEntries"`
	// Restorable lists the history versions that have a stored snapshot.
	Restorable []float64 `json:"restorable"`
	Warnings   []string  `json:"warnings"`
}

// History returns up to limit history rows, newest first. limit <= 0 means
// all rows.
func (s *Service) History(ctx context.Context, docPath string, limit int) (*HistoryResult, error) {
	res := &HistoryResult{
		DocumentPath: docPath,
		Entries:      []version.Entry{},
		Restorable:   []float64{},
		Warnings:     []string{},
	}
	content, err := s.store.Read(docPath)
	if err != nil {
		return res, err
	}
	res.CurrentVersion = version.ExtractVersion(content)

	entries := version.ParseHistory(content)
	if !version.HasHistoryTable(content) {
		res.Warnings = append(res.Warnings, "Document has no Version History table")
	}
	res.TotalEntries = len(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries != nil {
		res.Entries = entries
	}

	snaps, err := s.journal.List(ctx, s.store.Root(), docPath, 0)
	if err != nil {
		if errors.Is(err, journal.ErrUnavailable) {
			res.Warnings = append(res.Warnings, "Snapshots unavailable: rollback is disabled")
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Could not list snapshots: %v", err))
		}
		return res, nil
	}
	seen := map[string]bool{}
	for _, e := range res.Entries {
		for _, sn := range snaps {
			key := version.FormatVersion(e.Version)
			if !seen[key] && version.Equal(sn.Version, e.Version) {
				seen[key] = true
				res.Restorable = append(res.Restorable, e.Version)
			}
		}
	}
	return res, nil
}

func (s *Service) recordSnapshot(ctx context.Context, warnings *[]string, p string, v float64, content, changes, author string) {
	_, err := s.journal.Record(ctx, journal.Snapshot{
		ProjectRoot:  s.store.Root(),
		DocumentPath: p,
		Version:      v,
		Content:      content,
		Changes:      changes,
		Author:       author,
	})
	if err == nil {
		return
	}
	if !errors.Is(err, journal.ErrUnavailable) {
		*warnings = append(*warnings, fmt.Sprintf("Snapshot of version %s not recorded: %v", version.FormatVersion(v), err))
	}
	s.log.Debug().Err(err).Str("path", p).Msg("snapshot not recorded")
}

// touch sets Last Updated to date on goal documents and on any document
// that already carries the field. Goal staleness is read from it.
func touch(content string, t document.Type, date string) string {
	_, has := document.FieldMap(content)["lastupdated"]
	if has || t == document.TypeMajorGoal || t == document.TypeSubGoal {
		return document.SetField(content, "Last Updated", date)
	}
	return content
}

func expectVersion(want float64) backup.Validate {
	return func(written string) error {
		if got := version.ExtractVersion(written); !version.Equal(got, want) {
			return fmt.Errorf("version reads back as %s, want %s", version.FormatVersion(got), version.FormatVersion(want))
		}
		return nil
	}
}

func backupOptions(createBackup bool) []backup.Option {
	if createBackup {
		return nil
	}
	return []backup.Option{backup.WithoutBackup()}
}

func authorOr(a string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return version.DefaultAuthor
}
