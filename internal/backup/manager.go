// Package backup guards document mutations with a backup-and-rollback
// sequence.
//
// Every mutation moves through:
//
//	Idle -> BackedUp -> Mutated -> Validated (backup cleaned up)
//	                            \-> RolledBack (original restored)
//
// Any error or panic after BackedUp takes the rollback path. If the process
// dies mid-mutation the ".backup-<timestamp>" file stays on disk for manual
// recovery.
package backup

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/metrics"
	"github.com/rs/zerolog"
)

// State is a mutation's position in the backup state machine.
type State string

const (
	StateIdle       State = "idle"
	StateBackedUp   State = "backed_up"
	StateMutated    State = "mutated"
	StateValidated  State = "validated"
	StateRolledBack State = "rolled_back"
)

// ErrValidationFailed wraps post-write validation failures.
var ErrValidationFailed = errors.New("validation failed")

// Retention controls what happens to a backup after a successful mutation.
type Retention string

const (
	RetainDelete Retention = "delete"
	RetainKeep   Retention = "keep"
)

// Manager performs guarded mutations against a document store.
type Manager struct {
	store     docstore.Store
	log       zerolog.Logger
	metrics   *metrics.Metrics
	retention Retention
}

// NewManager creates a Manager. m may be nil.
func NewManager(store docstore.Store, log zerolog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{store: store, log: log, metrics: m, retention: RetainDelete}
}

// SetRetention changes the post-success backup policy.
func (m *Manager) SetRetention(r Retention) {
	if r == RetainKeep {
		m.retention = RetainKeep
		return
	}
	m.retention = RetainDelete
}

// BackupBeforeMutate snapshots a document. A failure here must abort the
// caller's mutation.
func (m *Manager) BackupBeforeMutate(p string) (string, error) {
	backupPath, err := m.store.Backup(p)
	if err != nil {
		m.metrics.RecordBackup("failed")
		return "", fmt.Errorf("backing up %s: %w", p, err)
	}
	m.metrics.RecordBackup("created")
	m.log.Debug().Str("path", p).Str("backup", backupPath).Msg("backup created")
	return backupPath, nil
}

// RollbackOnFailure restores a document from its backup and removes the
// backup. A missing backup means there is nothing to restore and is not an
// error.
func (m *Manager) RollbackOnFailure(p, backupPath string) error {
	if backupPath == "" {
		m.log.Warn().Str("path", p).Msg("rollback requested without a backup")
		return nil
	}
	content, err := m.store.Read(backupPath)
	if err != nil {
		if docstore.IsNotFound(err) {
			m.log.Warn().Str("path", p).Str("backup", backupPath).Msg("backup missing, nothing to restore")
			return nil
		}
		return fmt.Errorf("reading backup %s: %w", backupPath, err)
	}
	if err := m.store.Write(p, content); err != nil {
		// The backup stays on disk for manual recovery.
		return fmt.Errorf("restoring %s from %s: %w", p, backupPath, err)
	}
	m.metrics.RecordBackup("restored")
	m.log.Info().Str("path", p).Str("backup", backupPath).Msg("document restored from backup")

	if err := m.store.Delete(backupPath); err != nil {
		m.log.Warn().Err(err).Str("backup", backupPath).Msg("could not remove backup after restore")
	}
	return nil
}

// CleanupOnSuccess removes a backup after a validated write. Failures are
// logged only; the mutation already succeeded.
func (m *Manager) CleanupOnSuccess(backupPath string) (retained bool) {
	if backupPath == "" {
		return false
	}
	if m.retention == RetainKeep {
		return true
	}
	if err := m.store.Delete(backupPath); err != nil {
		m.log.Warn().Err(err).Str("backup", backupPath).Msg("backup cleanup failed")
		return true
	}
	m.metrics.RecordBackup("cleaned")
	return false
}

// Transform produces the new document content from the original.
type Transform func(original string) (string, error)

// Validate checks the content as read back after the write.
type Validate func(written string) error

// Mutation reports how a guarded mutation ended.
type Mutation struct {
	Path     string `json:"path"`
	State    State  `json:"state"`
	Original string `json:"-"`
	Updated  string `json:"-"`
	// BackupPath is set once the backup exists.
	BackupPath string `json:"backupPath,omitempty"`
	// BackupRetained is true when the backup is still on disk.
	BackupRetained bool `json:"backupRetained,omitempty"`
}

// Option adjusts a single Mutate call.
type Option func(*mutateOptions)

type mutateOptions struct {
	skipBackup bool
}

// WithoutBackup skips the on-disk backup. Rollback then rewrites the
// original content held in memory.
func WithoutBackup() Option {
	return func(o *mutateOptions) { o.skipBackup = true }
}

// Mutate reads p, backs it up, writes transform's output, reads it back
// and validates it. On any failure after the backup the original content
// is restored and the returned error is non-nil; the Mutation is always
// returned so callers can report where the sequence stopped.
func (m *Manager) Mutate(p string, transform Transform, validate Validate, opts ...Option) (mut *Mutation, err error) {
	var o mutateOptions
	for _, opt := range opts {
		opt(&o)
	}

	mut = &Mutation{Path: p, State: StateIdle}
	original, err := m.store.Read(p)
	if err != nil {
		return mut, fmt.Errorf("reading %s: %w", p, err)
	}
	mut.Original = original

	if !o.skipBackup {
		backupPath, err := m.BackupBeforeMutate(p)
		if err != nil {
			return mut, err
		}
		mut.BackupPath = backupPath
		mut.BackupRetained = true
	}
	mut.State = StateBackedUp

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutating %s: unexpected panic: %v", p, r)
		}
		if err == nil {
			return
		}
		if rbErr := m.rollback(mut); rbErr != nil {
			err = errors.Join(err, rbErr)
			return
		}
		mut.State = StateRolledBack
	}()

	updated, err := transform(original)
	if err != nil {
		return mut, err
	}
	if err := m.store.Write(p, updated); err != nil {
		return mut, fmt.Errorf("writing %s: %w", p, err)
	}
	mut.State = StateMutated
	mut.Updated = updated

	if validate != nil {
		written, err := m.store.Read(p)
		if err != nil {
			return mut, fmt.Errorf("re-reading %s: %w", p, err)
		}
		if verr := validate(written); verr != nil {
			return mut, fmt.Errorf("%w: %s: %v", ErrValidationFailed, p, verr)
		}
	}

	mut.State = StateValidated
	mut.BackupRetained = m.CleanupOnSuccess(mut.BackupPath)
	return mut, nil
}

func (m *Manager) rollback(mut *Mutation) error {
	if mut.BackupPath != "" {
		ok, err := m.store.Exists(mut.BackupPath)
		if err != nil {
			return fmt.Errorf("checking backup %s: %w", mut.BackupPath, err)
		}
		if ok {
			if err := m.RollbackOnFailure(mut.Path, mut.BackupPath); err != nil {
				return err
			}
			mut.BackupRetained = false
			return nil
		}
		m.log.Warn().Str("path", mut.Path).Str("backup", mut.BackupPath).Msg("backup missing, restoring from memory")
		mut.BackupRetained = false
	}
	// Nothing was written yet, so there is nothing to undo.
	if mut.State != StateMutated {
		return nil
	}
	if err := m.store.Write(mut.Path, mut.Original); err != nil {
		return fmt.Errorf("restoring %s: %w", mut.Path, err)
	}
	m.metrics.RecordBackup("restored")
	return nil
}
