package store

import (
	"bytes"
	"sort"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/model"
)

// Move records one file relocated by the format pass.
type Move struct {
	Key  string `json:"key"`
	From string `json:"from"`
	To   string `json:"to"`
}

// RelocateReport lists what a format pass changed.
type RelocateReport struct {
	Moved     []Move   `json:"moved"`
	Rewritten []string `json:"rewritten"`
}

// Changed reports whether the pass touched any file.
func (r *RelocateReport) Changed() bool {
	return len(r.Moved) > 0 || len(r.Rewritten) > 0
}

// Relocate recomputes the canonical location of every record. Misplaced
// records are moved and records whose file differs from the canonical
// encoding are rewritten. Running it again right after makes no changes.
func (s *Store) Relocate() (*RelocateReport, error) {
	report := &RelocateReport{}

	for _, key := range sortedKeys(s.imagesets) {
		r := s.imagesets[key]
		if err := relocateOne(s, report, key, r, canon.ImagesetLocation(r.val)); err != nil {
			return report, err
		}
	}
	for _, key := range sortedKeys(s.quarantine) {
		r := s.quarantine[key]
		if err := relocateOne(s, report, key, r, canon.QuarantineLocation(&r.val.Imageset)); err != nil {
			return report, err
		}
	}
	for _, key := range sortedKeys(s.places) {
		r := s.places[key]
		if err := relocateOne(s, report, key, r, canon.PlaceLocation(r.val)); err != nil {
			return report, err
		}
	}
	for _, key := range sortedKeys(s.templates) {
		r := s.templates[key]
		if err := relocateOne(s, report, key, r, canon.TemplateLocation(key)); err != nil {
			return report, err
		}
	}

	if report.Changed() {
		s.log.Info().Int("moved", len(report.Moved)).Int("rewritten", len(report.Rewritten)).Msg("store formatted")
	}
	return report, nil
}

func relocateOne[T any](s *Store, report *RelocateReport, key string, r *record[T], loc canon.Location) error {
	data, err := encodeRecord(r.val)
	if err != nil {
		return &model.StoreCorruptError{Path: r.path, Key: key, Reason: "cannot encode record: " + err.Error()}
	}

	want := loc.Path()
	switch {
	case r.path != want:
		from := r.path
		if r.path, err = s.write(loc, from, data); err != nil {
			return err
		}
		report.Moved = append(report.Moved, Move{Key: key, From: from, To: want})
	case !bytes.Equal(r.raw, data):
		if r.path, err = s.write(loc, "", data); err != nil {
			return err
		}
		report.Rewritten = append(report.Rewritten, want)
	default:
		return nil
	}
	r.raw = data
	return nil
}

func sortedKeys[T any](m map[string]*record[T]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
