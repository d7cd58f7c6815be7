package partition

import (
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/store"
)

// TagCount is the number of entries filed under one tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// UpdateReport summarizes an update of the partition file.
type UpdateReport struct {
	Path  string     `json:"path"`
	Tags  []TagCount `json:"tags"`
	Total int        `json:"total"`
	Added int        `json:"added"`
}

// Update brings the partition file at path up to date with the store: every
// sky imageset that is not a tiled catalog gets an entry, new ones under
// Unassigned, and entries without a description get one built from the
// imageset's name and credits URL. The file is rewritten in canonical form.
func Update(st *store.Store, fs billy.Filesystem, path string, log zerolog.Logger) (*UpdateReport, error) {
	f, err := Read(fs, path)
	if err != nil {
		return nil, err
	}

	report := &UpdateReport{Path: path}
	for _, im := range st.Imagesets() {
		if !im.IsSky() || strings.TrimSpace(im.URL) == "" {
			continue
		}
		if strings.Contains(im.FileType, "tdf") {
			continue
		}

		e, ok := f.Entries[im.URL]
		if !ok {
			e = Entry{URL: im.URL, Tag: Unassigned}
			report.Added++
			log.Debug().Str("url", im.URL).Msg("new imageset in partition file")
		}
		if e.Description == "" {
			e.Description = strings.TrimSpace(im.Name + " / " + im.CreditsURL)
		}
		f.Entries[im.URL] = e
	}

	counts := make(map[string]int)
	for _, e := range f.Entries {
		counts[e.Tag]++
	}
	for tag, n := range counts {
		report.Tags = append(report.Tags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(report.Tags, func(i, j int) bool {
		a, b := report.Tags[i], report.Tags[j]
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Tag < b.Tag
	})
	report.Total = len(f.Entries)

	if err := f.Write(fs); err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("total", report.Total).Int("added", report.Added).Msg("partition file updated")
	return report, nil
}
