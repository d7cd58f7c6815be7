package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// BucketCount is the number of records in one bucket of one partition.
type BucketCount struct {
	Partition string `json:"partition"`
	Bucket    string `json:"bucket"`
	Records   int    `json:"records"`
}

// LabelCount is the number of records sharing one attribute value.
type LabelCount struct {
	Label   string `json:"label"`
	Records int    `json:"records"`
}

const bucketCountsQuery = `
	SELECT partition, bucket, records FROM (
		SELECT partition, bucket, COUNT(*) AS records FROM imagesets GROUP BY partition, bucket
		UNION ALL
		SELECT 'places', bucket, COUNT(*) FROM places GROUP BY bucket
		UNION ALL
		SELECT 'catfiles', '', COUNT(*) FROM templates HAVING COUNT(*) > 0
	)`

// BucketCounts returns record counts per partition and bucket, ordered by
// partition then bucket. When partitions are given only those are counted.
func (d *Database) BucketCounts(partitions ...string) ([]BucketCount, error) {
	query := bucketCountsQuery
	var args []any
	if len(partitions) > 0 {
		var ph string
		ph, args = inClauseArgs(partitions)
		query += " WHERE partition IN (" + ph + ")"
	}
	query += " ORDER BY partition, bucket"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count buckets: %w", err)
	}
	return scanRows(rows, func(rows *sql.Rows) (BucketCount, error) {
		var c BucketCount
		err := rows.Scan(&c.Partition, &c.Bucket, &c.Records)
		return c, err
	})
}

// BandPassCounts returns production imageset counts per band pass, largest
// first. Imagesets with no band pass are counted under "(none)".
func (d *Database) BandPassCounts() ([]LabelCount, error) {
	rows, err := d.db.Query(`
		SELECT COALESCE(band_pass, '(none)') AS label, COUNT(*) AS records
		FROM imagesets WHERE partition = 'imagesets'
		GROUP BY label ORDER BY records DESC, label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count band passes: %w", err)
	}
	return scanRows(rows, scanLabelCount)
}

// UnusedImagesets returns the production imagesets no place uses as imagery,
// sorted by URL. Catalogs may still reference them directly.
func (d *Database) UnusedImagesets() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT i.url FROM imagesets i
		WHERE i.partition = 'imagesets'
		  AND NOT EXISTS (SELECT 1 FROM place_imagery p WHERE p.url = i.url OR p.url = i.alt_url)
		ORDER BY i.url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unused imagesets: %w", err)
	}
	return scanRows(rows, func(rows *sql.Rows) (string, error) {
		var u string
		err := rows.Scan(&u)
		return u, err
	})
}

func scanLabelCount(rows *sql.Rows) (LabelCount, error) {
	var c LabelCount
	err := rows.Scan(&c.Label, &c.Records)
	return c, err
}

// inClauseArgs returns a comma-separated list of "?" placeholders and the
// matching args.
func inClauseArgs(items []string) (string, []any) {
	ph := make([]string, len(items))
	args := make([]any, len(items))
	for i, item := range items {
		ph[i] = "?"
		args[i] = item
	}
	return strings.Join(ph, ", "), args
}

// scanRows scans all rows into a slice and closes them.
func scanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
