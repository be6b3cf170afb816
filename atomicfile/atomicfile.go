// Package atomicfile writes files through a temporary sibling and a rename,
// so a reader never observes a partially generated file and a failed run
// leaves no output behind.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a pending output file. Write to it, then Commit or Abort.
type File struct {
	tmp  *os.File
	path string
	done bool
}

// Create opens a temporary file next to path.
func Create(path string) (*File, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rsp-testgen-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("atomicfile: create temp file: %w", err)
	}
	return &File{tmp: tmp, path: path}, nil
}

// Name is the final path the file is committed to.
func (f *File) Name() string { return f.path }

func (f *File) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

// Commit syncs the temporary file and renames it over the final path.
func (f *File) Commit() error {
	if f.done {
		return fmt.Errorf("atomicfile: %s already closed", f.path)
	}
	f.done = true
	tmpPath := f.tmp.Name()

	if err := f.tmp.Sync(); err != nil {
		cleanup(f.tmp, tmpPath)
		return fmt.Errorf("atomicfile: sync temp file: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: close temp file: %w", err)
	}
	// CreateTemp uses 0600; generated sources are ordinary project files.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: rename temp to final: %w", err)
	}

	// Best-effort directory sync for crash-consistent durability (POSIX).
	syncDir(filepath.Dir(f.path))
	return nil
}

// Abort discards the temporary file. It is safe to call after Commit, which
// makes it suitable for defer.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true
	cleanup(f.tmp, f.tmp.Name())
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	f, err := Create(path)
	if err != nil {
		return err
	}
	defer f.Abort()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("atomicfile: write temp file: %w", err)
	}
	return f.Commit()
}

func cleanup(tmp *os.File, tmpPath string) {
	_ = tmp.Close()
	_ = os.Remove(tmpPath)
}

// syncDir attempts to fsync the directory. Errors are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
