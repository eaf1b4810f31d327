package backup

import (
	"errors"
	"strings"
	"testing"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyStore fails selected operations on top of a real FileStore.
type faultyStore struct {
	*docstore.FileStore
	failBackup bool
	failDelete bool
	failWrite  string // path whose Write fails
}

func (f *faultyStore) Backup(p string) (string, error) {
	if f.failBackup {
		return "", &docstore.IOError{Op: "backup", Path: p, Err: errors.New("disk full")}
	}
	return f.FileStore.Backup(p)
}

func (f *faultyStore) Delete(p string) error {
	if f.failDelete {
		return &docstore.IOError{Op: "delete", Path: p, Err: errors.New("permission denied")}
	}
	return f.FileStore.Delete(p)
}

func (f *faultyStore) Write(p, content string) error {
	if f.failWrite != "" && p == f.failWrite {
		return &docstore.IOError{Op: "write", Path: p, Err: errors.New("read-only")}
	}
	return f.FileStore.Write(p, content)
}

const original = "---\nversion: 1.0\n---\n# Doc\n"

func newFixture(t *testing.T) (*faultyStore, *Manager) {
	t.Helper()
	fs := &faultyStore{FileStore: docstore.New(t.TempDir())}
	require.NoError(t, fs.FileStore.Write("DOC.md", original))
	return fs, NewManager(fs, zerolog.Nop(), nil)
}

func backups(t *testing.T, fs *faultyStore) []string {
	t.Helper()
	got, err := fs.Glob("DOC.md" + docstore.BackupSuffix + "*")
	require.NoError(t, err)
	return got
}

func TestMutate_SuccessCleansUp(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(s string) (string, error) { return strings.Replace(s, "1.0", "1.1", 1), nil },
		func(s string) error { return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, StateValidated, mut.State)
	assert.NotEmpty(t, mut.BackupPath)
	assert.False(t, mut.BackupRetained)
	assert.Empty(t, backups(t, fs))

	got, _ := fs.Read("DOC.md")
	assert.Contains(t, got, "version: 1.1")
}

func TestMutate_ValidationFailureRestoresBitIdentical(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(string) (string, error) { return "garbage", nil },
		func(string) error { return errors.New("version missing") },
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, StateRolledBack, mut.State)

	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
	assert.Empty(t, backups(t, fs), "backup should be removed after restore")
}

func TestMutate_PanicRollsBack(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(string) (string, error) { return "changed", nil },
		func(string) error { panic("boom") },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, StateRolledBack, mut.State)

	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
}

func TestMutate_BackupFailureAborts(t *testing.T) {
	fs, m := newFixture(t)
	fs.failBackup = true

	called := false
	mut, err := m.Mutate("DOC.md", func(s string) (string, error) {
		called = true
		return s, nil
	}, nil)
	require.Error(t, err)
	assert.False(t, called, "transform must not run without a backup")
	assert.Equal(t, StateIdle, mut.State)
}

func TestMutate_MissingDocument(t *testing.T) {
	_, m := newFixture(t)
	_, err := m.Mutate("NOPE.md", func(s string) (string, error) { return s, nil }, nil)
	assert.True(t, docstore.IsNotFound(err))
}

func TestMutate_WriteFailureKeepsOriginal(t *testing.T) {
	fs, m := newFixture(t)
	fs.failWrite = "DOC.md"

	mut, err := m.Mutate("DOC.md", func(string) (string, error) { return "new", nil }, nil)
	require.Error(t, err)
	// Restoring also writes DOC.md and fails, so the backup is retained.
	assert.True(t, mut.BackupRetained)
	assert.Len(t, backups(t, fs), 1)

	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
}

func TestMutate_WithoutBackup(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(string) (string, error) { return "bad", nil },
		func(string) error { return errors.New("nope") },
		WithoutBackup(),
	)
	require.Error(t, err)
	assert.Empty(t, mut.BackupPath)
	assert.Equal(t, StateRolledBack, mut.State)
	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
}

func TestMutate_MissingBackupRestoresFromMemory(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(string) (string, error) { return "changed", nil },
		func(string) error {
			for _, b := range backups(t, fs) {
				require.NoError(t, fs.FileStore.Delete(b))
			}
			return errors.New("version missing")
		},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, StateRolledBack, mut.State)
	assert.False(t, mut.BackupRetained)

	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
}

func TestMutate_MissingBackupAndFailedRestore(t *testing.T) {
	fs, m := newFixture(t)

	mut, err := m.Mutate("DOC.md",
		func(string) (string, error) { return "changed", nil },
		func(string) error {
			for _, b := range backups(t, fs) {
				require.NoError(t, fs.FileStore.Delete(b))
			}
			fs.failWrite = "DOC.md"
			return errors.New("version missing")
		},
	)
	require.Error(t, err)
	assert.Equal(t, StateMutated, mut.State, "no rollback may be reported when nothing was restored")
	got, _ := fs.Read("DOC.md")
	assert.Equal(t, "changed", got)
}

func TestRollbackOnFailure_MissingBackupIsNoop(t *testing.T) {
	fs, m := newFixture(t)
	require.NoError(t, m.RollbackOnFailure("DOC.md", "DOC.md.backup-gone"))
	got, _ := fs.Read("DOC.md")
	assert.Equal(t, original, got)
}

func TestCleanupOnSuccess_DeleteFailureIsNonFatal(t *testing.T) {
	fs, m := newFixture(t)
	fs.failDelete = true

	mut, err := m.Mutate("DOC.md", func(s string) (string, error) { return s + "\nmore\n", nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, StateValidated, mut.State)
	assert.True(t, mut.BackupRetained)
}

func TestRetainKeep(t *testing.T) {
	fs, m := newFixture(t)
	m.SetRetention(RetainKeep)

	mut, err := m.Mutate("DOC.md", func(s string) (string, error) { return s, nil }, nil)
	require.NoError(t, err)
	assert.True(t, mut.BackupRetained)
	assert.Len(t, backups(t, fs), 1)
}
