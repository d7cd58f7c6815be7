// Package store is the file-backed record store: imagesets keyed by URL,
// places keyed by generated ID, folder templates keyed by catalog name, and
// the quarantine partition.
//
// A Store is an explicitly constructed value; any number of them can coexist,
// each over its own billy.Filesystem.
package store

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/model"
)

// Options configures a Store.
type Options struct {
	Logger zerolog.Logger

	// Rand is the source of place identifiers. Defaults to crypto/rand.
	Rand io.Reader

	// AllowMisplaced loads records found outside their canonical location
	// instead of failing. The format pass uses it to repair the store.
	AllowMisplaced bool

	Metrics *metrics.Run
}

type record[T any] struct {
	val  *T
	path string
	raw  []byte
}

// Store holds the in-memory collections loaded from a store directory.
type Store struct {
	fs   billy.Filesystem
	opts Options
	log  zerolog.Logger

	imagesets  map[string]*record[model.Imageset]
	altURLs    map[string]string // alt URL -> main URL
	places     map[string]*record[model.Place]
	templates  map[string]*record[model.FolderTemplate]
	quarantine map[string]*record[model.QuarantinedImageset]
}

// New returns an empty store over fs.
func New(fs billy.Filesystem, opts Options) *Store {
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	return &Store{
		fs:         fs,
		opts:       opts,
		log:        opts.Logger.With().Str("component", "store").Logger(),
		imagesets:  make(map[string]*record[model.Imageset]),
		altURLs:    make(map[string]string),
		places:     make(map[string]*record[model.Place]),
		templates:  make(map[string]*record[model.FolderTemplate]),
		quarantine: make(map[string]*record[model.QuarantinedImageset]),
	}
}

// Open creates a store over fs and loads it.
func Open(fs billy.Filesystem, opts Options) (*Store, error) {
	s := New(fs, opts)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// FS returns the filesystem the store lives on.
func (s *Store) FS() billy.Filesystem { return s.fs }

// Load reads every record file into memory, replacing any loaded state.
//
// It fails with a *model.ParseError when a file does not decode and with a
// *model.StoreCorruptError on a duplicate key, a misplaced record, or an
// invalid record.
func (s *Store) Load() error {
	fresh := New(s.fs, s.opts)

	steps := []struct {
		partition string
		load      func(path string, data []byte) error
	}{
		{canon.ImagesetDir, fresh.loadImageset},
		{canon.QuarantineDir, fresh.loadQuarantined},
		{canon.PlaceDir, fresh.loadPlace},
		{canon.CatfileDir, fresh.loadTemplate},
	}
	for _, step := range steps {
		err := walkRecordFiles(s.fs, step.partition, func(r WalkResult) error {
			if r.Error != nil {
				return fmt.Errorf("read %s: %w", r.Path, r.Error)
			}
			return step.load(r.Path, r.Data)
		})
		if err != nil {
			return err
		}
	}

	s.imagesets = fresh.imagesets
	s.altURLs = fresh.altURLs
	s.places = fresh.places
	s.templates = fresh.templates
	s.quarantine = fresh.quarantine

	s.log.Debug().
		Int("imagesets", len(s.imagesets)).
		Int("places", len(s.places)).
		Int("templates", len(s.templates)).
		Int("quarantined", len(s.quarantine)).
		Msg("store loaded")
	return nil
}

func decodeRecord(path string, data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return &model.ParseError{Path: path, Err: err}
	}
	return nil
}

func encodeRecord(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) checkPlacement(path, key string, want canon.Location) error {
	if filepath.Clean(path) == want.Path() || s.opts.AllowMisplaced {
		return nil
	}
	return &model.StoreCorruptError{
		Path:   path,
		Key:    key,
		Reason: "misplaced record, canonical location is " + want.String(),
	}
}

func (s *Store) loadImageset(path string, data []byte) error {
	var im model.Imageset
	if err := decodeRecord(path, data, &im); err != nil {
		return err
	}
	if im.URL == "" {
		return &model.StoreCorruptError{Path: path, Reason: "imageset has no url"}
	}
	if err := s.checkUnique(path, im.URL); err != nil {
		return err
	}
	if err := s.checkPlacement(path, im.URL, canon.ImagesetLocation(&im)); err != nil {
		return err
	}
	s.imagesets[im.URL] = &record[model.Imageset]{val: &im, path: path, raw: data}
	s.indexAltURL(&im)
	return nil
}

func (s *Store) loadQuarantined(path string, data []byte) error {
	var q model.QuarantinedImageset
	if err := decodeRecord(path, data, &q); err != nil {
		return err
	}
	if q.URL == "" {
		return &model.StoreCorruptError{Path: path, Reason: "imageset has no url"}
	}
	if strings.TrimSpace(q.Reason) == "" {
		return &model.StoreCorruptError{Path: path, Key: q.URL, Reason: "quarantined imageset has no reason"}
	}
	if err := s.checkUnique(path, q.URL); err != nil {
		return err
	}
	if err := s.checkPlacement(path, q.URL, canon.QuarantineLocation(&q.Imageset)); err != nil {
		return err
	}
	s.quarantine[q.URL] = &record[model.QuarantinedImageset]{val: &q, path: path, raw: data}
	return nil
}

func (s *Store) checkUnique(path, url string) error {
	if prev, ok := s.imagesets[url]; ok {
		return &model.StoreCorruptError{Path: path, Key: url, Reason: "duplicate imageset url, also defined in " + prev.path}
	}
	if prev, ok := s.quarantine[url]; ok {
		return &model.StoreCorruptError{Path: path, Key: url, Reason: "duplicate imageset url, also quarantined in " + prev.path}
	}
	return nil
}

func (s *Store) indexAltURL(im *model.Imageset) {
	if main, ok := s.altURLs[im.URL]; ok && main != im.URL {
		s.log.Warn().Str("url", im.URL).Str("main_url", main).Msg("imageset url is registered as an alt url of another imageset")
	}
	if im.AltURL == "" {
		return
	}
	if main, ok := s.altURLs[im.AltURL]; ok && main != im.URL {
		s.log.Warn().Str("alt_url", im.AltURL).Str("main_url", main).Str("url", im.URL).Msg("duplicated alt url")
		return
	}
	s.altURLs[im.AltURL] = im.URL
}

func (s *Store) loadPlace(path string, data []byte) error {
	var p model.Place
	if err := decodeRecord(path, data, &p); err != nil {
		return err
	}
	if !model.ValidPlaceID(p.ID) {
		return &model.StoreCorruptError{Path: path, Key: p.ID, Reason: "place id is not a generated identifier"}
	}
	if prev, ok := s.places[p.ID]; ok {
		return &model.StoreCorruptError{Path: path, Key: p.ID, Reason: "duplicate place id, also defined in " + prev.path}
	}
	if err := s.checkPlacement(path, p.ID, canon.PlaceLocation(&p)); err != nil {
		return err
	}
	s.places[p.ID] = &record[model.Place]{val: &p, path: path, raw: data}
	return nil
}

func (s *Store) loadTemplate(path string, data []byte) error {
	name := strings.TrimSuffix(filepath.Base(path), canon.RecordExt)
	if !canon.ValidCatalogName(name) {
		return &model.StoreCorruptError{Path: path, Key: name, Reason: "invalid catalog name"}
	}
	var t model.FolderTemplate
	if err := decodeRecord(path, data, &t); err != nil {
		return err
	}
	t.Catalog = name
	if prev, ok := s.templates[name]; ok {
		return &model.StoreCorruptError{Path: path, Key: name, Reason: "duplicate catalog, also defined in " + prev.path}
	}
	if err := s.checkPlacement(path, name, canon.TemplateLocation(name)); err != nil {
		return err
	}
	s.templates[name] = &record[model.FolderTemplate]{val: &t, path: path, raw: data}
	return nil
}

// Imageset returns the stored imageset with the given URL. The returned
// record is shared with the store and must not be modified; use Clone.
func (s *Store) Imageset(url string) (*model.Imageset, bool) {
	r, ok := s.imagesets[url]
	if !ok {
		return nil, false
	}
	return r.val, true
}

// MainURL maps an alt URL to the URL of the imageset declaring it. Any other
// URL is returned unchanged.
func (s *Store) MainURL(url string) string {
	if _, ok := s.imagesets[url]; ok {
		return url
	}
	if main, ok := s.altURLs[url]; ok {
		return main
	}
	return url
}

// Quarantined returns the quarantined imageset with the given URL.
func (s *Store) Quarantined(url string) (*model.QuarantinedImageset, bool) {
	r, ok := s.quarantine[url]
	if !ok {
		return nil, false
	}
	return r.val, true
}

// Place returns the stored place with the given ID.
func (s *Store) Place(id string) (*model.Place, bool) {
	r, ok := s.places[id]
	if !ok {
		return nil, false
	}
	return r.val, true
}

// Template returns the folder template for a catalog.
func (s *Store) Template(name string) (*model.FolderTemplate, bool) {
	r, ok := s.templates[name]
	if !ok {
		return nil, false
	}
	return r.val, true
}

// Imagesets returns all production imagesets sorted by URL.
func (s *Store) Imagesets() []*model.Imageset {
	return sortedValues(s.imagesets)
}

// Places returns all places sorted by ID.
func (s *Store) Places() []*model.Place {
	return sortedValues(s.places)
}

// Templates returns all folder templates sorted by catalog name.
func (s *Store) Templates() []*model.FolderTemplate {
	return sortedValues(s.templates)
}

// QuarantinedImagesets returns the quarantine partition sorted by URL.
func (s *Store) QuarantinedImagesets() []*model.QuarantinedImageset {
	return sortedValues(s.quarantine)
}

// PathOf returns the current relative file path of a record, identified by
// its kind and key.
func (s *Store) PathOf(kind model.ChildKind, key string) (string, bool) {
	var (
		path string
		ok   bool
	)
	switch kind {
	case model.ChildImageset:
		var r *record[model.Imageset]
		if r, ok = s.imagesets[key]; ok {
			path = r.path
		}
	case model.ChildPlace:
		var r *record[model.Place]
		if r, ok = s.places[key]; ok {
			path = r.path
		}
	case model.ChildCatalog:
		var r *record[model.FolderTemplate]
		if r, ok = s.templates[key]; ok {
			path = r.path
		}
	}
	return path, ok
}

func sortedValues[T any](m map[string]*record[T]) []*T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k].val)
	}
	return out
}
