// Package journal records the content of documents at each version so that
// a later rollback can restore it.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HendryAvila/planmcp/internal/storage"
	"github.com/HendryAvila/planmcp/internal/version"
)

// ErrUnavailable is returned by a nil Journal, which is what the server
// runs with when the database could not be opened.
var ErrUnavailable = errors.New("snapshots unavailable: version journal is not initialized")

// ErrNoSnapshot means no content was recorded for the requested version.
var ErrNoSnapshot = errors.New("no snapshot recorded")

var timeNow = time.Now

// Snapshot is a document's content as it was at Version.
type Snapshot struct {
	ID           int64     `json:"id"`
	ProjectRoot  string    `json:"projectRoot"`
	DocumentPath string    `json:"documentPath"`
	Version      float64   `json:"version"`
	Content      string    `json:"-"`
	Changes      string    `json:"changes"`
	Author       string    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
}

type snapshotRow struct {
	ID           int64  `db:"id"`
	ProjectRoot  string `db:"project_root"`
	DocumentPath string `db:"document_path"`
	Version      string `db:"version"`
	Content      string `db:"content"`
	Changes      string `db:"changes"`
	Author       string `db:"author"`
	CreatedAt    string `db:"created_at"`
}

func (r snapshotRow) snapshot() (Snapshot, error) {
	v, err := version.ParseVersion(r.Version)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", r.ID, err)
	}
	created, err := storage.ParseTime(r.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", r.ID, err)
	}
	return Snapshot{
		ID:           r.ID,
		ProjectRoot:  r.ProjectRoot,
		DocumentPath: r.DocumentPath,
		Version:      v,
		Content:      r.Content,
		Changes:      r.Changes,
		Author:       r.Author,
		CreatedAt:    created,
	}, nil
}

// Journal stores snapshots in the shared database. A nil *Journal is valid
// and reports ErrUnavailable from every method.
type Journal struct {
	db *storage.DB
}

// New returns a Journal over db, or nil when db is nil.
func New(db *storage.DB) *Journal {
	if db == nil {
		return nil
	}
	return &Journal{db: db}
}

// Record stores the content of a document at a version. Recording the same
// version twice keeps both rows; Find returns the newest.
func (j *Journal) Record(ctx context.Context, s Snapshot) (Snapshot, error) {
	if j == nil {
		return s, ErrUnavailable
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = timeNow()
	}
	res, err := j.db.X().ExecContext(ctx,
		`INSERT INTO snapshots (project_root, document_path, version, content, changes, author, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ProjectRoot, s.DocumentPath, version.FormatVersion(s.Version), s.Content, s.Changes, s.Author,
		storage.FormatTime(s.CreatedAt))
	if err != nil {
		return s, fmt.Errorf("journal: record %s@%s: %w", s.DocumentPath, version.FormatVersion(s.Version), err)
	}
	s.ID, _ = res.LastInsertId()
	return s, nil
}

// Find returns the newest snapshot of a document at version v.
func (j *Journal) Find(ctx context.Context, root, docPath string, v float64) (Snapshot, error) {
	if j == nil {
		return Snapshot{}, ErrUnavailable
	}
	var row snapshotRow
	err := j.db.X().GetContext(ctx, &row,
		`SELECT * FROM snapshots
		 WHERE project_root = ? AND document_path = ? AND version = ?
		 ORDER BY id DESC LIMIT 1`,
		root, docPath, version.FormatVersion(v))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w for %s version %s", ErrNoSnapshot, docPath, version.FormatVersion(v))
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("journal: find %s: %w", docPath, err)
	}
	return row.snapshot()
}

// List returns a document's snapshots, newest first. limit <= 0 means all.
func (j *Journal) List(ctx context.Context, root, docPath string, limit int) ([]Snapshot, error) {
	if j == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = -1
	}
	var rows []snapshotRow
	err := j.db.X().SelectContext(ctx, &rows,
		`SELECT * FROM snapshots
		 WHERE project_root = ? AND document_path = ?
		 ORDER BY id DESC LIMIT ?`,
		root, docPath, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list %s: %w", docPath, err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		s, err := r.snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
