package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteRead_CreatesParents(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Write("a/b/DOC.md", "# Doc\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/DOC.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "# Doc\n" {
		t.Errorf("Read = %q, want %q", got, "# Doc\n")
	}
}

func TestRead_MissingIsNotFoundIOError(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Read("missing.md")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound = false for %v", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("error %T is not *IOError", err)
	}
	if ioErr.Op != "read" || ioErr.Path != "missing.md" {
		t.Errorf("IOError = %+v", ioErr)
	}
}

func TestExists(t *testing.T) {
	s := New(t.TempDir())
	ok, err := s.Exists("x.md")
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	_ = s.Write("x.md", "x")
	ok, err = s.Exists("x.md")
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
}

func TestPathsEscapingRootAreRejected(t *testing.T) {
	s := New(t.TempDir())
	for _, p := range []string{"../outside.md", "a/../../outside.md", "/etc/passwd", ""} {
		if err := s.Write(p, "x"); err == nil {
			t.Errorf("Write(%q) should fail", p)
		}
	}
}

func TestBackup_TimestampedCopy(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 123e6, time.UTC) }
	defer func() { timeNow = orig }()

	s := New(t.TempDir())
	_ = s.Write("docs/A.md", "original")

	backup, err := s.Backup("docs/A.md")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	want := "docs/A.md.backup-2026-10-19T08-30-00-123Z"
	if backup != want {
		t.Errorf("backup path = %s, want %s", backup, want)
	}
	got, _ := s.Read(backup)
	if got != "original" {
		t.Errorf("backup content = %q", got)
	}
	if !IsBackup(backup) {
		t.Error("IsBackup should be true")
	}
}

func TestBackup_MissingSourceFails(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Backup("nope.md"); !IsNotFound(err) {
		t.Errorf("Backup of missing file: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())
	_ = s.Write("x.md", "x")
	if err := s.Delete("x.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("x.md"); !IsNotFound(err) {
		t.Errorf("second Delete: %v", err)
	}
}

func TestGlob_SortedRelative(t *testing.T) {
	s := New(t.TempDir())
	_ = s.Write("components/b/OVERVIEW.md", "b")
	_ = s.Write("components/a/OVERVIEW.md", "a")
	_ = s.Write("components/a/NOTES.md", "n")

	got, err := s.Glob("components/*/OVERVIEW.md")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	want := "components/a/OVERVIEW.md,components/b/OVERVIEW.md"
	if strings.Join(got, ",") != want {
		t.Errorf("Glob = %v, want %s", got, want)
	}
}

func TestMove(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	_ = s.Write("goals/g1/GOAL-STATUS.md", "g")

	if err := s.Move("goals/g1", "archive/g1"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "archive", "g1", "GOAL-STATUS.md")); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
}

func TestListMarkdown_SkipsNoise(t *testing.T) {
	s := New(t.TempDir())
	_ = s.Write("README.md", "r")
	_ = s.Write("docs/guide.md", "g")
	_ = s.Write("docs/guide.md.backup-2026-01-01T00-00-00-000Z", "b")
	_ = s.Write("node_modules/pkg/README.md", "n")
	_ = s.Write(".git/x.md", "h")
	_ = s.Write("notes.txt", "t")

	got, err := s.ListMarkdown()
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if strings.Join(got, ",") != "README.md,docs/guide.md" {
		t.Errorf("ListMarkdown = %v", got)
	}
}
