package index

import (
	"database/sql"
	"fmt"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
)

// Stats counts the rows written by a rebuild.
type Stats struct {
	Imagesets   int `json:"imagesets"`
	Quarantined int `json:"quarantined"`
	Places      int `json:"places"`
	Templates   int `json:"templates"`
}

// Rebuild replaces the whole index with the contents of st in a single
// transaction.
func (d *Database) Rebuild(st *store.Store) (*Stats, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"imagesets", "places", "place_imagery", "templates"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	stats := &Stats{}
	for _, im := range st.Imagesets() {
		if err := insertImageset(tx, im, canon.ImagesetLocation(im), ""); err != nil {
			return nil, err
		}
		stats.Imagesets++
	}
	for _, q := range st.QuarantinedImagesets() {
		if err := insertImageset(tx, &q.Imageset, canon.QuarantineLocation(&q.Imageset), q.Reason); err != nil {
			return nil, err
		}
		stats.Quarantined++
	}
	for _, p := range st.Places() {
		if err := insertPlace(tx, p); err != nil {
			return nil, err
		}
		stats.Places++
	}
	for _, t := range st.Templates() {
		loc := canon.TemplateLocation(t.Catalog)
		_, err := tx.Exec(`INSERT INTO templates (catalog, file_path, standalone, is_xml, children) VALUES (?, ?, ?, ?, ?)`,
			t.Catalog, loc.String(), t.Standalone, t.IsXML, len(t.Children))
		if err != nil {
			return nil, fmt.Errorf("failed to index template %s: %w", t.Catalog, err)
		}
		stats.Templates++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stats, nil
}

func insertImageset(tx *sql.Tx, im *model.Imageset, loc canon.Location, reason string) error {
	_, err := tx.Exec(`
		INSERT INTO imagesets (url, partition, bucket, file_path, name, data_set_type, band_pass, projection, alt_url, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		im.URL, loc.Partition, loc.Bucket, loc.String(),
		nullable(im.Name), nullable(im.DataSetType), nullable(im.BandPass), nullable(im.Projection),
		nullable(im.AltURL), nullable(reason))
	if err != nil {
		return fmt.Errorf("failed to index imageset %s: %w", im.URL, err)
	}
	return nil
}

func insertPlace(tx *sql.Tx, p *model.Place) error {
	loc := canon.PlaceLocation(p)
	_, err := tx.Exec(`
		INSERT INTO places (id, bucket, file_path, name, data_set_type, constellation, classification)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, loc.Bucket, loc.String(), nullable(p.Name), nullable(p.DataSetType),
		nullable(p.Constellation), nullable(p.Classification))
	if err != nil {
		return fmt.Errorf("failed to index place %s: %w", p.ID, err)
	}

	roles := []struct{ role, url string }{
		{"imageset", p.ImagesetURL},
		{"foreground", p.ForegroundURL},
		{"background", p.BackgroundURL},
	}
	for _, r := range roles {
		if r.url == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO place_imagery (place_id, role, url) VALUES (?, ?, ?)`, p.ID, r.role, r.url); err != nil {
			return fmt.Errorf("failed to index imagery of place %s: %w", p.ID, err)
		}
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
