// Package atomicfile writes files so that readers never observe a partially
// written record.
package atomicfile

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// TempPrefix starts the name of every in-flight temporary file. Loaders skip
// names with a leading dot, so a crash leftover is never read as a record.
const TempPrefix = "."

// WriteFile writes data to path on fs atomically.
//
// It writes to a temporary file in the same directory and renames it into
// place. Parent directories are created as needed.
func WriteFile(fs billy.Filesystem, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := fs.TempFile(dir, TempPrefix+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// memfs files have no Sync.
	if s, ok := tmp.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("sync temp file: %w", err)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// On Windows, renaming over an existing file fails. Remove first (not atomic).
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(path)
		if err2 := fs.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
	}

	committed = true
	return nil
}
