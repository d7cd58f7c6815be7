package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aidanlsb/skycat/internal/atomicfile"
	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/model"
)

// ErrQuarantined is returned when saving an imageset whose URL is held in the
// quarantine partition.
var ErrQuarantined = errors.New("imageset is quarantined")

// write stores data at loc and, when the record previously lived elsewhere,
// removes the old file afterwards.
func (s *Store) write(loc canon.Location, oldPath string, data []byte) (string, error) {
	path := loc.Path()
	if err := atomicfile.WriteFile(s.fs, path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", loc, err)
	}
	s.opts.Metrics.FileWritten(loc.Partition)

	if oldPath != "" && oldPath != path {
		if err := s.fs.Remove(oldPath); err != nil {
			return "", fmt.Errorf("remove %s: %w", oldPath, err)
		}
		s.pruneDir(oldPath)
	}
	return path, nil
}

// pruneDir removes the bucket directory of path if it is now empty.
func (s *Store) pruneDir(path string) {
	dir := parentDir(path)
	if dir == "" {
		return
	}
	entries, err := s.fs.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = s.fs.Remove(dir)
	}
}

func parentDir(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	if i <= 0 {
		return ""
	}
	dir := path[:i]
	// Partition roots stay.
	if !strings.ContainsAny(dir, `/\`) {
		return ""
	}
	return dir
}

// SaveImageset writes an imageset to its canonical location, replacing any
// stored record with the same URL.
func (s *Store) SaveImageset(im *model.Imageset) error {
	if im.URL == "" {
		return fmt.Errorf("save imageset: empty url")
	}
	if _, ok := s.quarantine[im.URL]; ok {
		return fmt.Errorf("save imageset %s: %w", im.URL, ErrQuarantined)
	}

	data, err := encodeRecord(im)
	if err != nil {
		return fmt.Errorf("encode imageset %s: %w", im.URL, err)
	}

	var oldPath string
	if prev, ok := s.imagesets[im.URL]; ok {
		oldPath = prev.path
		if prev.val.AltURL != "" && prev.val.AltURL != im.AltURL && s.altURLs[prev.val.AltURL] == im.URL {
			delete(s.altURLs, prev.val.AltURL)
		}
	}

	path, err := s.write(canon.ImagesetLocation(im), oldPath, data)
	if err != nil {
		return err
	}
	s.imagesets[im.URL] = &record[model.Imageset]{val: im, path: path, raw: data}
	s.indexAltURL(im)
	return nil
}

// NewPlaceID generates an identifier not used by any stored place.
func (s *Store) NewPlaceID() (string, error) {
	for {
		id, err := model.NewPlaceID(s.opts.Rand)
		if err != nil {
			return "", fmt.Errorf("generate place id: %w", err)
		}
		if _, taken := s.places[id]; !taken {
			return id, nil
		}
	}
}

// SavePlace writes a place to its canonical location. A place without an ID
// is assigned a fresh one; an existing ID is never changed.
func (s *Store) SavePlace(p *model.Place) error {
	if p.ID == "" {
		id, err := s.NewPlaceID()
		if err != nil {
			return err
		}
		p.ID = id
	}
	if !model.ValidPlaceID(p.ID) {
		return fmt.Errorf("save place: invalid id %q", p.ID)
	}

	data, err := encodeRecord(p)
	if err != nil {
		return fmt.Errorf("encode place %s: %w", p.ID, err)
	}

	var oldPath string
	if prev, ok := s.places[p.ID]; ok {
		oldPath = prev.path
	}

	path, err := s.write(canon.PlaceLocation(p), oldPath, data)
	if err != nil {
		return err
	}
	s.places[p.ID] = &record[model.Place]{val: p, path: path, raw: data}
	return nil
}

// SaveTemplate writes a folder template under its catalog name.
func (s *Store) SaveTemplate(t *model.FolderTemplate) error {
	if !canon.ValidCatalogName(t.Catalog) {
		return fmt.Errorf("save template: invalid catalog name %q", t.Catalog)
	}

	data, err := encodeRecord(t)
	if err != nil {
		return fmt.Errorf("encode template %s: %w", t.Catalog, err)
	}

	var oldPath string
	if prev, ok := s.templates[t.Catalog]; ok {
		oldPath = prev.path
	}

	path, err := s.write(canon.TemplateLocation(t.Catalog), oldPath, data)
	if err != nil {
		return err
	}
	s.templates[t.Catalog] = &record[model.FolderTemplate]{val: t, path: path, raw: data}
	return nil
}

// Quarantine moves a production imageset into the quarantine partition with
// the given reason. The reason is mandatory.
func (s *Store) Quarantine(url, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("quarantine %s: a reason is required", url)
	}
	prev, ok := s.imagesets[url]
	if !ok {
		if _, q := s.quarantine[url]; q {
			return fmt.Errorf("quarantine %s: %w", url, ErrQuarantined)
		}
		return fmt.Errorf("quarantine %s: no such imageset", url)
	}

	q := &model.QuarantinedImageset{Imageset: *prev.val.Clone(), Reason: reason}
	data, err := encodeRecord(q)
	if err != nil {
		return fmt.Errorf("encode imageset %s: %w", url, err)
	}

	path, err := s.write(canon.QuarantineLocation(&q.Imageset), prev.path, data)
	if err != nil {
		return err
	}

	delete(s.imagesets, url)
	if q.AltURL != "" && s.altURLs[q.AltURL] == url {
		delete(s.altURLs, q.AltURL)
	}
	s.quarantine[url] = &record[model.QuarantinedImageset]{val: q, path: path, raw: data}
	s.log.Info().Str("url", url).Str("reason", reason).Msg("imageset quarantined")
	return nil
}
