package partition

import (
	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/wtml"
)

// EmitReport summarizes the document built for one tag.
type EmitReport struct {
	Tag       string   `json:"tag"`
	URLs      int      `json:"urls"`
	Places    int      `json:"places"`
	Imagesets int      `json:"imagesets"`
	Missing   []string `json:"missing,omitempty"`
}

// Emit builds a document holding the places whose foreground imageset (or
// main imageset, failing that) is filed under tag, followed by the tagged
// imagesets no such place covered. Tagged URLs absent from the store are
// reported and left out.
func Emit(st *store.Store, f *File, tag string, log zerolog.Logger) (*wtml.Folder, *EmitReport, error) {
	urls := f.URLs(tag)
	report := &EmitReport{Tag: tag, URLs: len(urls)}
	doc := &wtml.Folder{Attrs: model.FolderAttrs{Name: tag, Group: "Explorer", Type: "Sky"}}
	if len(urls) == 0 {
		return doc, report, nil
	}

	tagged := make(map[string]bool, len(urls))
	for _, u := range urls {
		tagged[u] = true
	}

	res := resolve.New(st, resolve.Options{Logger: log})
	covered := make(map[string]bool)
	for _, p := range st.Places() {
		u := st.MainURL(p.ForegroundURL)
		if p.ForegroundURL == "" || !tagged[u] {
			u = st.MainURL(p.ImagesetURL)
			if p.ImagesetURL == "" || !tagged[u] {
				continue
			}
		}
		node, err := res.Place(p.ID)
		if err != nil {
			return nil, nil, err
		}
		doc.Children = append(doc.Children, node)
		covered[u] = true
		report.Places++
	}

	for _, u := range urls {
		if covered[u] {
			continue
		}
		im, ok := st.Imageset(u)
		if !ok {
			report.Missing = append(report.Missing, u)
			log.Warn().Str("url", u).Msg("partition entry is not in the store")
			continue
		}
		doc.Children = append(doc.Children, &wtml.Imageset{Imageset: *im.Clone()})
		report.Imagesets++
	}

	log.Info().Str("tag", tag).Int("places", report.Places).Int("imagesets", report.Imagesets).Msg("partition emitted")
	return doc, report, nil
}
