// Package ingest merges resolved catalog documents back into the store.
//
// A run first decomposes the whole document into candidate records and
// matches them against the store in memory. Only when planning succeeds are
// records saved, so a malformed document never causes a write.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/wtml"
)

// DefaultTolerance is the place coordinate tolerance used when none is set.
const DefaultTolerance = 1e-6

// Options controls how a document is merged.
type Options struct {
	// Target names an existing catalog to splice the document's top-level
	// entries into.
	Target string

	// InsertAt is the splice position within Target. Zero prepends; a
	// negative value or one past the end appends.
	InsertAt int

	// Emit names a catalog to create (or replace) mirroring the document.
	Emit string

	// Standalone marks an emitted catalog as its own document.
	Standalone bool

	// Tolerance is how far apart place coordinates may be and still match.
	// Zero means DefaultTolerance.
	Tolerance float64

	// DryRun plans and reports without writing.
	DryRun bool

	Logger  zerolog.Logger
	Metrics *metrics.Run
}

// Merger ingests documents into one store.
type Merger struct {
	st   *store.Store
	opts Options
	log  zerolog.Logger
}

// New creates a merger over st.
func New(st *store.Store, opts Options) *Merger {
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Merger{
		st:   st,
		opts: opts,
		log:  opts.Logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestReader parses a document and ingests it. A malformed document fails
// with a *model.ParseError before anything is written.
func (m *Merger) IngestReader(r io.Reader, source string) (*Report, error) {
	doc, err := wtml.Parse(r, source)
	if err != nil {
		return nil, err
	}
	return m.Ingest(doc, source)
}

// Ingest merges a parsed document into the store.
func (m *Merger) Ingest(doc *wtml.Folder, source string) (*Report, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	p := newPlan(m, source)
	spec := p.folder(doc)

	if err := p.template(spec); err != nil {
		return nil, err
	}
	p.summarize()

	if m.opts.DryRun {
		p.report.DryRun = true
		return p.report, nil
	}
	if err := p.apply(); err != nil {
		return p.report, err
	}
	return p.report, nil
}

func (m *Merger) validate() error {
	if m.opts.Target != "" && m.opts.Emit != "" {
		return errors.New("target and emit are mutually exclusive")
	}
	if m.opts.Target != "" {
		if _, ok := m.st.Template(m.opts.Target); !ok {
			return &model.DanglingReferenceError{Catalog: m.opts.Target, Kind: model.ChildCatalog, Ref: m.opts.Target}
		}
	}
	if m.opts.Emit != "" && !canon.ValidCatalogName(m.opts.Emit) {
		return fmt.Errorf("invalid catalog name %q", m.opts.Emit)
	}
	return nil
}

// template plans the catalog change, if any.
func (p *plan) template(spec *model.FolderSpec) error {
	opts := p.m.opts
	switch {
	case opts.Target != "":
		prev, _ := p.m.st.Template(opts.Target)
		t := *prev
		t.Children = splice(prev.Children, spec.Children, opts.InsertAt)
		p.report.Template = t.Catalog
		if len(t.Children) == len(prev.Children) {
			p.report.TemplateAction = Unchanged
			return nil
		}
		p.report.TemplateAction = Updated
		p.tmpl = &t

	case opts.Emit != "":
		t := &model.FolderTemplate{Catalog: opts.Emit, Standalone: opts.Standalone, FolderSpec: *spec}
		p.report.Template = t.Catalog
		p.report.TemplateAction = Created
		if prev, ok := p.m.st.Template(opts.Emit); ok {
			t.Standalone = prev.Standalone || opts.Standalone
			t.IsXML = prev.IsXML
			if reflect.DeepEqual(prev, t) {
				p.report.TemplateAction = Unchanged
				return nil
			}
			p.report.TemplateAction = Updated
		}
		p.tmpl = t
	}
	return nil
}

// splice inserts the reference entries of add into children at index at,
// skipping references children already holds. Inline folders are always
// inserted.
func splice(children, add []model.Child, at int) []model.Child {
	seen := make(map[model.Child]bool, len(children))
	for _, c := range children {
		if c.Kind != model.ChildFolder {
			seen[c] = true
		}
	}

	var fresh []model.Child
	for _, c := range add {
		if c.Kind != model.ChildFolder {
			if seen[c] {
				continue
			}
			seen[c] = true
		}
		fresh = append(fresh, c)
	}

	if at < 0 || at > len(children) {
		at = len(children)
	}
	out := make([]model.Child, 0, len(children)+len(fresh))
	out = append(out, children[:at]...)
	out = append(out, fresh...)
	out = append(out, children[at:]...)
	return out
}
