// Package resolve expands folder templates into resolved catalog documents.
package resolve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/wtml"
)

// Mode selects how links between catalog documents are written.
type Mode int

const (
	// Absolute links point at the published catalog service.
	Absolute Mode = iota
	// Preview links are relative paths to sibling files, so a directory of
	// emitted documents can be browsed before publication.
	Preview
)

func (m Mode) String() string {
	if m == Preview {
		return "preview"
	}
	return "absolute"
}

// ParseMode parses "absolute" or "preview".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "absolute", "":
		return Absolute, nil
	case "preview":
		return Preview, nil
	}
	return Absolute, fmt.Errorf("invalid mode %q (want absolute or preview)", s)
}

// DefaultCatalogURL is the service that serves published catalogs by name.
const DefaultCatalogURL = "http://www.worldwidetelescope.org/wwtweb/catalog.aspx"

// Options configures a Resolver.
type Options struct {
	// CatalogURL is the base URL of published catalogs.
	CatalogURL string
	Logger     zerolog.Logger
	Metrics    *metrics.Run
}

// Resolver expands templates against a store. It only reads the store.
type Resolver struct {
	st   *store.Store
	opts Options
	log  zerolog.Logger
}

// New creates a resolver over st.
func New(st *store.Store, opts Options) *Resolver {
	if opts.CatalogURL == "" {
		opts.CatalogURL = DefaultCatalogURL
	}
	return &Resolver{
		st:   st,
		opts: opts,
		log:  opts.Logger.With().Str("component", "resolve").Logger(),
	}
}

// FileName is the name a catalog is emitted under in the given mode.
func FileName(t *model.FolderTemplate, mode Mode) string {
	if mode == Preview {
		return t.Catalog + "_rel" + t.Ext()
	}
	return t.Catalog + t.Ext()
}

// LinkURL returns the URL other documents use to link to a catalog.
func (r *Resolver) LinkURL(t *model.FolderTemplate, mode Mode) string {
	if mode == Preview {
		return "./" + FileName(t, Preview)
	}
	param := "W"
	if t.IsXML {
		param = "X"
	}
	return r.opts.CatalogURL + "?" + param + "=" + url.QueryEscape(t.Catalog)
}

// ManagedCatalog returns the catalog a URL points at when it is a link into
// the catalog service for a template held in the store.
func (r *Resolver) ManagedCatalog(u string) (*model.FolderTemplate, bool) {
	rest, ok := strings.CutPrefix(u, r.opts.CatalogURL+"?")
	if !ok {
		return nil, false
	}
	q, err := url.ParseQuery(rest)
	if err != nil {
		return nil, false
	}
	for _, param := range []string{"W", "X"} {
		if name := q.Get(param); name != "" {
			return r.st.Template(name)
		}
	}
	return nil, false
}

// Resolve expands the named template into a document.
//
// It fails with a *model.DanglingReferenceError when a reference names a
// missing record and with a *model.CyclicReferenceError when a catalog is
// reached from itself through inlined references.
func (r *Resolver) Resolve(name string, mode Mode) (*wtml.Folder, error) {
	t, ok := r.st.Template(name)
	if !ok {
		return nil, &model.DanglingReferenceError{Catalog: name, Kind: model.ChildCatalog, Ref: name}
	}
	w := &walker{r: r, mode: mode, path: []string{name}}
	return w.folder(name, &t.FolderSpec)
}

// Place resolves one stored place with its imagery inlined.
func (r *Resolver) Place(id string) (*wtml.Place, error) {
	w := &walker{r: r}
	return w.place("", id)
}

type walker struct {
	r    *Resolver
	mode Mode
	path []string // catalogs being inlined, outermost first
}

func (w *walker) folder(catalog string, spec *model.FolderSpec) (*wtml.Folder, error) {
	out := &wtml.Folder{Attrs: cloneAttrs(spec.FolderAttrs)}
	if len(spec.Children) == 0 && spec.URL != "" {
		if t, ok := w.r.ManagedCatalog(spec.URL); ok {
			out.Attrs.URL = w.r.LinkURL(t, w.mode)
		}
		return out, nil
	}

	for _, c := range spec.Children {
		node, err := w.child(catalog, c)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, node)
	}
	return out, nil
}

func (w *walker) child(catalog string, c model.Child) (wtml.Node, error) {
	switch c.Kind {
	case model.ChildFolder:
		return w.folder(catalog, c.Folder)

	case model.ChildImageset:
		im, err := w.imageset(catalog, c.Ref)
		if err != nil {
			return nil, err
		}
		return &wtml.Imageset{Imageset: *im}, nil

	case model.ChildPlace:
		return w.place(catalog, c.Ref)

	case model.ChildCatalog:
		t, ok := w.r.st.Template(c.Ref)
		if !ok {
			return nil, &model.DanglingReferenceError{Catalog: catalog, Kind: model.ChildCatalog, Ref: c.Ref}
		}
		if t.Standalone {
			attrs := cloneAttrs(t.FolderAttrs)
			attrs.URL = w.r.LinkURL(t, w.mode)
			return &wtml.Folder{Attrs: attrs}, nil
		}
		for i, seen := range w.path {
			if seen == t.Catalog {
				chain := append(append([]string{}, w.path[i:]...), t.Catalog)
				return nil, &model.CyclicReferenceError{Chain: chain}
			}
		}
		w.path = append(w.path, t.Catalog)
		defer func() { w.path = w.path[:len(w.path)-1] }()
		return w.folder(t.Catalog, &t.FolderSpec)
	}
	return nil, fmt.Errorf("catalog %s: unknown child kind %v", catalog, c.Kind)
}

func (w *walker) imageset(catalog, ref string) (*model.Imageset, error) {
	im, ok := w.r.st.Imageset(w.r.st.MainURL(ref))
	if !ok {
		return nil, &model.DanglingReferenceError{Catalog: catalog, Kind: model.ChildImageset, Ref: ref}
	}
	return im.Clone(), nil
}

func (w *walker) place(catalog, id string) (*wtml.Place, error) {
	p, ok := w.r.st.Place(id)
	if !ok {
		return nil, &model.DanglingReferenceError{Catalog: catalog, Kind: model.ChildPlace, Ref: id}
	}
	out := &wtml.Place{Place: *p.Clone()}

	var err error
	refs := []struct {
		url string
		dst **model.Imageset
	}{
		{p.ImagesetURL, &out.Imageset},
		{p.ForegroundURL, &out.Foreground},
		{p.BackgroundURL, &out.Background},
	}
	for _, ref := range refs {
		if ref.url == "" {
			continue
		}
		if *ref.dst, err = w.imageset(catalog, ref.url); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cloneAttrs(a model.FolderAttrs) model.FolderAttrs {
	out := a
	if a.Extra != nil {
		out.Extra = make(map[string]string, len(a.Extra))
		for k, v := range a.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
