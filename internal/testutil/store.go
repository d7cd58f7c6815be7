// Package testutil provides reusable fixtures for skycat tests.
package testutil

import (
	"math/rand"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
)

// TestStore builds a store directory on an in-memory filesystem.
//
// Records added with the With* methods are written through a scratch store,
// so they land at their canonical location in canonical form. WithFile writes
// raw content anywhere, which is how tests set up broken stores.
type TestStore struct {
	FS billy.Filesystem

	// Path is the directory on disk backing FS, empty for in-memory stores.
	Path string

	t       *testing.T
	scratch *store.Store
	seed    int64
}

// NewTestStore creates an empty in-memory store directory.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()
	return newTestStore(t, memfs.New())
}

// NewDiskStore creates an empty store directory under t.TempDir, for tests
// that run commands against a real path.
func NewDiskStore(t *testing.T) *TestStore {
	t.Helper()
	dir := t.TempDir()
	s := newTestStore(t, osfs.New(dir))
	s.Path = dir
	return s
}

func newTestStore(t *testing.T, fs billy.Filesystem) *TestStore {
	return &TestStore{
		FS:      fs,
		t:       t,
		scratch: store.New(fs, store.Options{Rand: Rand(1)}),
		seed:    42,
	}
}

// Rand returns a deterministic random source for place identifiers.
func Rand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// WithSeed sets the seed of the random source handed to Open.
func (s *TestStore) WithSeed(seed int64) *TestStore {
	s.seed = seed
	return s
}

// WithFile writes raw content at a path relative to the store root.
func (s *TestStore) WithFile(path, content string) *TestStore {
	s.t.Helper()
	if err := util.WriteFile(s.FS, path, []byte(content), 0o644); err != nil {
		s.t.Fatalf("failed to write file %s: %v", path, err)
	}
	return s
}

// WithImageset saves an imageset record.
func (s *TestStore) WithImageset(im *model.Imageset) *TestStore {
	s.t.Helper()
	if err := s.scratch.SaveImageset(im.Clone()); err != nil {
		s.t.Fatalf("failed to save imageset %s: %v", im.URL, err)
	}
	return s
}

// WithPlace saves a place record. Places without an ID get one from a
// deterministic source.
func (s *TestStore) WithPlace(p *model.Place) *TestStore {
	s.t.Helper()
	if err := s.scratch.SavePlace(p); err != nil {
		s.t.Fatalf("failed to save place %s: %v", p.Name, err)
	}
	return s
}

// WithTemplate saves a folder template.
func (s *TestStore) WithTemplate(t *model.FolderTemplate) *TestStore {
	s.t.Helper()
	if err := s.scratch.SaveTemplate(t); err != nil {
		s.t.Fatalf("failed to save template %s: %v", t.Catalog, err)
	}
	return s
}

// WithQuarantined saves an imageset and moves it into quarantine.
func (s *TestStore) WithQuarantined(im *model.Imageset, reason string) *TestStore {
	s.t.Helper()
	s.WithImageset(im)
	if err := s.scratch.Quarantine(im.URL, reason); err != nil {
		s.t.Fatalf("failed to quarantine %s: %v", im.URL, err)
	}
	return s
}

// Open loads a fresh store from the directory, failing the test on error.
func (s *TestStore) Open() *store.Store {
	s.t.Helper()
	st, err := store.Open(s.FS, s.Options())
	if err != nil {
		s.t.Fatalf("failed to open store: %v", err)
	}
	return st
}

// Options returns the store options tests use by default.
func (s *TestStore) Options() store.Options {
	return store.Options{Rand: Rand(s.seed)}
}

// ReadFile reads a file relative to the store root.
func (s *TestStore) ReadFile(path string) string {
	s.t.Helper()
	data, err := util.ReadFile(s.FS, path)
	if err != nil {
		s.t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists reports whether a file exists in the store directory.
func (s *TestStore) FileExists(path string) bool {
	_, err := s.FS.Stat(path)
	return err == nil
}

// Files lists every non-hidden file under dir, relative to the store root.
func (s *TestStore) Files(dir string) []string {
	s.t.Helper()
	var files []string
	err := util.Walk(s.FS, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		s.t.Fatalf("failed to walk %s: %v", dir, err)
	}
	return files
}
