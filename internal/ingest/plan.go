package ingest

import (
	"errors"
	"fmt"

	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/wtml"
)

type pendingImageset struct {
	rec    *model.Imageset
	action Action
}

type pendingPlace struct {
	rec    *model.Place
	action Action
}

// plan is the in-memory outcome of matching a document against the store.
type plan struct {
	m      *Merger
	report *Report

	imagesets map[string]*pendingImageset
	isOrder   []string
	altURLs   map[string]string // alt URL -> main URL, for imagesets new in this run

	places  map[string]*pendingPlace
	plOrder []string

	tmpl *model.FolderTemplate
}

func newPlan(m *Merger, source string) *plan {
	return &plan{
		m:         m,
		report:    &Report{Source: source},
		imagesets: make(map[string]*pendingImageset),
		altURLs:   make(map[string]string),
		places:    make(map[string]*pendingPlace),
	}
}

func (p *plan) skip(kind, key, reason string, err error) {
	p.report.Skips = append(p.report.Skips, Skip{Kind: kind, Key: key, Reason: reason, Err: err})
	p.m.log.Warn().Str("kind", kind).Str("key", key).Str("reason", reason).Msg("record skipped")
}

// folder decomposes a document folder into a template folder whose children
// reference planned records.
func (p *plan) folder(f *wtml.Folder) *model.FolderSpec {
	spec := &model.FolderSpec{FolderAttrs: f.Attrs}
	spec.Extra = copyMap(f.Attrs.Extra)

	if f.IsLink() {
		p.report.LinkFolders = append(p.report.LinkFolders, f.Attrs.URL)
		p.m.log.Info().Str("url", f.Attrs.URL).Msg("linked catalog can be ingested separately")
		return spec
	}

	for _, c := range f.Children {
		switch c := c.(type) {
		case *wtml.Folder:
			spec.Children = append(spec.Children, model.InlineFolder(p.folder(c)))
		case *wtml.Imageset:
			if url, ok := p.imageset(&c.Imageset); ok {
				spec.Children = append(spec.Children, model.ImagesetRef(url))
			}
		case *wtml.Place:
			if id, ok := p.place(c); ok {
				spec.Children = append(spec.Children, model.PlaceRef(id))
			}
		}
	}
	return spec
}

// mainURL maps an alt URL known to the store or to this run onto the URL of
// the imageset declaring it.
func (p *plan) mainURL(url string) string {
	if _, ok := p.imagesets[url]; ok {
		return url
	}
	if main, ok := p.altURLs[url]; ok {
		return main
	}
	return p.m.st.MainURL(url)
}

// imageset plans one candidate imageset and returns the URL that references
// to it should use.
func (p *plan) imageset(cand *model.Imageset) (string, bool) {
	if _, ok := p.m.st.Quarantined(cand.URL); ok {
		p.skip(metrics.KindImageset, cand.URL, "imageset is quarantined", nil)
		p.report.Imagesets.add(Skipped)
		p.m.opts.Metrics.Skipped(metrics.KindImageset, "quarantined")
		return "", false
	}

	if main := p.mainURL(cand.URL); main != cand.URL {
		p.m.log.Warn().Str("url", cand.URL).Str("main_url", main).Msg("imageset url is an alt url, using the main record")
		p.report.Imagesets.add(Unchanged)
		return main, true
	}

	rec := cand.Clone()
	if prev, ok := p.imagesets[rec.URL]; ok {
		if prev.rec.Equal(rec) {
			return rec.URL, true
		}
		p.m.log.Warn().Str("url", rec.URL).Msg("imageset appears twice with different attributes, keeping the last")
		prev.rec = rec
		prev.action = p.imagesetAction(rec)
		p.indexAlt(rec)
		return rec.URL, true
	}

	p.imagesets[rec.URL] = &pendingImageset{rec: rec, action: p.imagesetAction(rec)}
	p.isOrder = append(p.isOrder, rec.URL)
	p.indexAlt(rec)
	return rec.URL, true
}

func (p *plan) imagesetAction(rec *model.Imageset) Action {
	stored, ok := p.m.st.Imageset(rec.URL)
	switch {
	case !ok:
		return Created
	case stored.Equal(rec):
		return Unchanged
	}
	return Updated
}

func (p *plan) indexAlt(im *model.Imageset) {
	if im.AltURL == "" {
		return
	}
	if main := p.mainURL(im.AltURL); main != im.AltURL && main != im.URL {
		p.m.log.Warn().Str("alt_url", im.AltURL).Str("main_url", main).Str("url", im.URL).Msg("duplicated alt url")
		return
	}
	p.altURLs[im.AltURL] = im.URL
}

// place plans one candidate place and returns the identifier references to
// it should use.
func (p *plan) place(wp *wtml.Place) (string, bool) {
	cand := wp.Place.Clone()
	cand.ID = ""

	imagery := []struct {
		im  *model.Imageset
		dst *string
	}{
		{wp.Imageset, &cand.ImagesetURL},
		{wp.Foreground, &cand.ForegroundURL},
		{wp.Background, &cand.BackgroundURL},
	}
	for _, ref := range imagery {
		if ref.im == nil {
			continue
		}
		url, ok := p.imageset(ref.im)
		if !ok {
			p.skip(metrics.KindPlace, cand.Name, "imagery "+ref.im.URL+" is quarantined", nil)
			p.report.Places.add(Skipped)
			p.m.opts.Metrics.Skipped(metrics.KindPlace, "quarantined")
			return "", false
		}
		*ref.dst = url
	}

	id, err := p.match(cand)
	if err != nil {
		p.skip(metrics.KindPlace, cand.Name, "ambiguous match", err)
		p.report.Places.add(Skipped)
		p.m.opts.Metrics.Skipped(metrics.KindPlace, "ambiguous")
		return "", false
	}

	if id == "" {
		if id, err = p.newPlaceID(); err != nil {
			p.skip(metrics.KindPlace, cand.Name, err.Error(), err)
			p.report.Places.add(Skipped)
			return "", false
		}
		cand.ID = id
		p.places[id] = &pendingPlace{rec: cand, action: Created}
		p.plOrder = append(p.plOrder, id)
		return id, true
	}

	cand.ID = id
	if prev, ok := p.places[id]; ok {
		if !prev.rec.Equal(cand) {
			prev.rec = cand
			if prev.action != Created {
				prev.action = p.placeAction(cand)
			}
		}
		return id, true
	}

	p.places[id] = &pendingPlace{rec: cand, action: p.placeAction(cand)}
	p.plOrder = append(p.plOrder, id)
	return id, true
}

// placeAction compares a candidate with its stored place. A stored place may
// name its imagery by alt URL while documents always carry the main record, so
// the stored references are mapped to main URLs before comparing.
func (p *plan) placeAction(rec *model.Place) Action {
	stored, ok := p.m.st.Place(rec.ID)
	switch {
	case !ok:
		return Created
	case stored.Equal(rec), p.mainImagery(stored).Equal(rec):
		return Unchanged
	}
	return Updated
}

func (p *plan) mainImagery(pl *model.Place) *model.Place {
	c := pl.Clone()
	for _, u := range []*string{&c.ImagesetURL, &c.ForegroundURL, &c.BackgroundURL} {
		if *u != "" {
			*u = p.mainURL(*u)
		}
	}
	return c
}

// match finds the place a candidate is equivalent to, among stored places
// and places created earlier in this run. It returns "" when there is none.
func (p *plan) match(cand *model.Place) (string, error) {
	tol := p.m.opts.Tolerance
	seen := make(map[string]bool)
	var ids []string

	for _, sp := range p.m.st.Places() {
		if sp.Matches(cand, tol) {
			ids = append(ids, sp.ID)
			seen[sp.ID] = true
		}
	}
	for _, id := range p.plOrder {
		pp := p.places[id]
		if !seen[id] && pp.action == Created && pp.rec.Matches(cand, tol) {
			ids = append(ids, id)
		}
	}

	switch len(ids) {
	case 0:
		return "", nil
	case 1:
		return ids[0], nil
	}
	return "", &model.AmbiguousMatchError{Name: cand.Name, Candidates: ids}
}

func (p *plan) newPlaceID() (string, error) {
	for {
		id, err := p.m.st.NewPlaceID()
		if err != nil {
			return "", err
		}
		if _, taken := p.places[id]; !taken {
			return id, nil
		}
	}
}

// summarize fills in the report counts and the per-record results.
func (p *plan) summarize() {
	st := p.m.st
	for _, url := range p.isOrder {
		pi := p.imagesets[url]
		p.report.Imagesets.add(pi.action)
		if pi.action == Unchanged {
			continue
		}
		result := RecordResult{Kind: metrics.KindImageset, Key: url, Name: pi.rec.Name, Action: pi.action}
		if stored, ok := st.Imageset(url); ok {
			result.Changes = model.Diff(stored.Attrs(), pi.rec.Attrs())
		}
		p.report.Records = append(p.report.Records, result)
	}

	for _, id := range p.plOrder {
		pp := p.places[id]
		p.report.Places.add(pp.action)
		if pp.action == Unchanged {
			continue
		}
		result := RecordResult{Kind: metrics.KindPlace, Key: id, Name: pp.rec.Name, Action: pp.action}
		if stored, ok := st.Place(id); ok {
			result.Changes = model.Diff(stored.Attrs(), pp.rec.Attrs())
		}
		p.report.Records = append(p.report.Records, result)
	}
}

// apply saves every record the report lists, then the template.
func (p *plan) apply() error {
	st := p.m.st
	run := p.m.opts.Metrics

	for _, r := range p.report.Records {
		var err error
		switch r.Kind {
		case metrics.KindImageset:
			err = st.SaveImageset(p.imagesets[r.Key].rec)
		case metrics.KindPlace:
			err = st.SavePlace(p.places[r.Key].rec)
		}
		if err != nil {
			return fmt.Errorf("save %s %s: %w", r.Kind, r.Key, err)
		}
		if r.Action == Created {
			run.Created(r.Kind)
		} else {
			run.Updated(r.Kind)
		}
		ev := p.m.log.Info().Str("kind", r.Kind).Str("key", r.Key).Str("action", string(r.Action))
		if len(r.Changes) > 0 {
			ev = ev.Int("changes", len(r.Changes))
		}
		ev.Msg("record saved")
	}

	if p.tmpl != nil {
		if err := st.SaveTemplate(p.tmpl); err != nil {
			return fmt.Errorf("save template %s: %w", p.tmpl.Catalog, err)
		}
		if p.report.TemplateAction == Created {
			run.Created(metrics.KindTemplate)
		} else {
			run.Updated(metrics.KindTemplate)
		}
	}
	return nil
}

// AmbiguousSkips returns the skips caused by ambiguous place matches.
func (r *Report) AmbiguousSkips() []Skip {
	var out []Skip
	for _, s := range r.Skips {
		if errors.Is(s.Err, model.ErrAmbiguousMatch) {
			out = append(out, s)
		}
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
