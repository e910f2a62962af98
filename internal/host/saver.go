package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Saver persists an exported artifact and reports where it went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// PersistenceError reports that an artifact could not be saved.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DirSaver writes artifacts into a directory, creating it on first use.
// Files are written to a temporary name and renamed into place, so a
// failed save never leaves a truncated workbook behind.
type DirSaver struct {
	Dir string
}

// NewDirSaver returns a DirSaver rooted at dir.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{Dir: dir}
}

// Save writes data to Dir/name, replacing any existing file. Only the base
// of name is used.
func (s *DirSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := ctx.Err(); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(s.Dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", &PersistenceError{Path: path, Err: err}
	}
	return path, nil
}

// WriterSaver streams artifacts to a writer, e.g. stdout for "-o -".
type WriterSaver struct {
	W io.Writer
}

// StdoutSaver returns a WriterSaver on os.Stdout.
func StdoutSaver() *WriterSaver {
	return &WriterSaver{W: os.Stdout}
}

// Save writes data to the writer and returns "-" as the location.
func (s *WriterSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PersistenceError{Path: "-", Err: err}
	}
	if _, err := s.W.Write(data); err != nil {
		return "", &PersistenceError{Path: "-", Err: err}
	}
	return "-", nil
}
