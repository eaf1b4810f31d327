// Package docstore reads and writes planning documents below a project
// root. Every path it accepts and returns is slash-separated and relative
// to that root.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// ErrNotFound matches (via errors.Is) failures on missing documents.
var ErrNotFound = fs.ErrNotExist

// IOError is the error kind for every failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a missing-document failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the document accessor used by the versioning engine.
// Abstracted so that the engine can be exercised against failing stores.
type Store interface {
	Root() string
	Exists(p string) (bool, error)
	Read(p string) (string, error)
	Write(p, content string) error
	Backup(p string) (string, error)
	Delete(p string) error
	Glob(pattern string) ([]string, error)
	Move(from, to string) error
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	root string
}

// New returns a FileStore rooted at root.
func New(root string) *FileStore {
	return &FileStore{root: filepath.Clean(root)}
}

// Root returns the absolute project root.
func (s *FileStore) Root() string { return s.root }

// abs resolves a relative document path, refusing paths that escape root.
func (s *FileStore) abs(op, p string) (string, error) {
	slash := strings.ReplaceAll(p, "\\", "/")
	if slash == "" || path.IsAbs(slash) || strings.Contains(p, "\x00") {
		return "", &IOError{Op: op, Path: p, Err: errors.New("invalid document path")}
	}
	clean := path.Clean(slash)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &IOError{Op: op, Path: p, Err: errors.New("path escapes project root")}
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Exists reports whether a document exists.
func (s *FileStore) Exists(p string) (bool, error) {
	abs, err := s.abs("stat", p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &IOError{Op: "stat", Path: p, Err: err}
	}
	return true, nil
}

// Read returns a document's content.
func (s *FileStore) Read(p string) (string, error) {
	abs, err := s.abs("read", p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", &IOError{Op: "read", Path: p, Err: err}
	}
	return string(data), nil
}

// Write replaces a document atomically, creating parent folders.
func (s *FileStore) Write(p, content string) error {
	abs, err := s.abs("write", p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &IOError{Op: "write", Path: p, Err: err}
	}
	if err := atomic.WriteFile(abs, strings.NewReader(content)); err != nil {
		return &IOError{Op: "write", Path: p, Err: err}
	}
	return nil
}

// Backup copies a document to "<path>.backup-<timestamp>" and returns the
// backup's relative path.
func (s *FileStore) Backup(p string) (string, error) {
	content, err := s.Read(p)
	if err != nil {
		return "", &IOError{Op: "backup", Path: p, Err: errors.Unwrap(err)}
	}
	backupPath := BackupPath(p)
	if err := s.Write(backupPath, content); err != nil {
		return "", &IOError{Op: "backup", Path: p, Err: errors.Unwrap(err)}
	}
	return backupPath, nil
}

// Delete removes a document.
func (s *FileStore) Delete(p string) error {
	abs, err := s.abs("delete", p)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return &IOError{Op: "delete", Path: p, Err: err}
	}
	return nil
}

// Glob returns the sorted relative paths matching a slash pattern.
func (s *FileStore) Glob(pattern string) ([]string, error) {
	abs, err := s.abs("glob", pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(abs)
	if err != nil {
		return nil, &IOError{Op: "glob", Path: pattern, Err: err}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out, nil
}

// Move renames a file or folder, creating the destination's parent.
func (s *FileStore) Move(from, to string) error {
	src, err := s.abs("move", from)
	if err != nil {
		return err
	}
	dst, err := s.abs("move", to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &IOError{Op: "move", Path: to, Err: err}
	}
	if err := os.Rename(src, dst); err != nil {
		return &IOError{Op: "move", Path: from, Err: err}
	}
	return nil
}

// ListMarkdown walks the project and returns every ".md" document,
// skipping node_modules, hidden folders and backup files.
func (s *FileStore) ListMarkdown() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != s.root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") || IsBackup(name) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &IOError{Op: "walk", Path: ".", Err: err}
	}
	sort.Strings(out)
	return out, nil
}
