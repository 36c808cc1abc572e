// Package file reads raw files from the local disk.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local opens one file path.
type Local struct{ path string }

// NewLocal returns a Local source for path.
func NewLocal(path string) *Local { return &Local{path: filepath.Clean(path)} }

// Path returns the cleaned path.
func (l *Local) Path() string { return l.path }

// Open opens the file. A cancelled context fails before touching the disk;
// filesystem errors keep their cause for errors.Is (os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", l.path, err)
	}
	return f, nil
}

// Create writes to path, creating parent directories. The file is written to
// a temporary sibling and renamed into place on Close, so readers never see a
// partial file. The returned writer also has an Abort() error method that
// discards the temporary file.
func Create(path string) (io.WriteCloser, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("file: create %s: %w", path, err)
	}
	return &atomicFile{File: tmp, dest: path}, nil
}

type atomicFile struct {
	*os.File
	dest string
}

func (f *atomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("file: close %s: %w", f.dest, err)
	}
	if err := os.Rename(f.Name(), f.dest); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("file: rename into %s: %w", f.dest, err)
	}
	return nil
}

// Abort discards the temporary file and leaves the destination untouched.
func (f *atomicFile) Abort() error {
	_ = f.File.Close()
	return os.Remove(f.Name())
}
