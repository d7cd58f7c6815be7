// Package trace reports stored imagesets that no root catalog reaches.
package trace

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"

	"github.com/aidanlsb/skycat/internal/model"
	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/store"
)

// Options configures a trace.
type Options struct {
	// Roots are the catalogs the walk starts from.
	Roots []string

	// Allow lists imageset URLs that are expected to be unreachable.
	Allow []string

	CatalogURL string
	Logger     zerolog.Logger
}

// Unreachable is a stored imageset no root reaches.
type Unreachable struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`

	// Places lists the places that use the imageset as imagery. Those places
	// are themselves unreachable.
	Places []string `json:"places,omitempty"`
}

// Dangling is a reference to a missing record met during the walk.
type Dangling struct {
	Catalog string `json:"catalog"`
	Kind    string `json:"kind"`
	Ref     string `json:"ref"`
}

// Err returns the diagnostic as a *model.DanglingReferenceError.
func (d Dangling) Err() error {
	kind := model.ChildImageset
	switch d.Kind {
	case model.ChildPlace.String():
		kind = model.ChildPlace
	case model.ChildCatalog.String():
		kind = model.ChildCatalog
	}
	return &model.DanglingReferenceError{Catalog: d.Catalog, Kind: kind, Ref: d.Ref}
}

// Result is the outcome of a trace.
type Result struct {
	Roots     []string `json:"roots"`
	Stored    int      `json:"stored"`
	Reachable int      `json:"reachable"`

	Unreachable  []Unreachable `json:"unreachable"`
	Allowed      []string      `json:"allowed,omitempty"`
	StaleAllow   []string      `json:"stale_allow,omitempty"`
	Dangling     []Dangling    `json:"dangling,omitempty"`
	MissingRoots []string      `json:"missing_roots,omitempty"`
}

// Clean reports whether the trace found nothing to act on.
func (r *Result) Clean() bool {
	return len(r.Unreachable) == 0 && len(r.Dangling) == 0 && len(r.MissingRoots) == 0
}

type tracer struct {
	st     *store.Store
	links  *resolve.Resolver
	log    zerolog.Logger
	index  map[string]uint32
	reach  *roaring.Bitmap
	seen   map[string]bool
	result *Result
}

// Trace walks every root catalog the way the resolver does and reports the
// stored imagesets it never reaches. It never fails: dangling references and
// missing roots are reported as diagnostics.
func Trace(st *store.Store, opts Options) *Result {
	urls := st.Imagesets()
	t := &tracer{
		st:     st,
		links:  resolve.New(st, resolve.Options{CatalogURL: opts.CatalogURL}),
		log:    opts.Logger.With().Str("component", "trace").Logger(),
		index:  make(map[string]uint32, len(urls)),
		reach:  roaring.New(),
		seen:   make(map[string]bool),
		result: &Result{Roots: opts.Roots, Stored: len(urls)},
	}
	stored := roaring.New()
	for i, im := range urls {
		t.index[im.URL] = uint32(i)
		stored.Add(uint32(i))
	}

	for _, root := range opts.Roots {
		tmpl, ok := st.Template(root)
		if !ok {
			t.result.MissingRoots = append(t.result.MissingRoots, root)
			t.log.Warn().Str("catalog", root).Msg("root catalog does not exist")
			continue
		}
		t.visit(tmpl)
	}
	t.result.Reachable = int(t.reach.GetCardinality())

	allow := make(map[string]bool, len(opts.Allow))
	for _, u := range opts.Allow {
		allow[u] = true
	}

	users := placesByImageset(st)
	unreachable := roaring.AndNot(stored, t.reach)
	for _, i := range unreachable.ToArray() {
		im := urls[i]
		if allow[im.URL] {
			t.result.Allowed = append(t.result.Allowed, im.URL)
			delete(allow, im.URL)
			continue
		}
		t.result.Unreachable = append(t.result.Unreachable, Unreachable{URL: im.URL, Name: im.Name, Places: users[im.URL]})
	}
	for u := range allow {
		t.result.StaleAllow = append(t.result.StaleAllow, u)
	}
	sort.Strings(t.result.StaleAllow)

	return t.result
}

func (t *tracer) visit(tmpl *model.FolderTemplate) {
	if t.seen[tmpl.Catalog] {
		return
	}
	t.seen[tmpl.Catalog] = true
	t.folder(tmpl.Catalog, &tmpl.FolderSpec)
}

func (t *tracer) folder(catalog string, spec *model.FolderSpec) {
	if len(spec.Children) == 0 && spec.URL != "" {
		if linked, ok := t.links.ManagedCatalog(spec.URL); ok {
			t.visit(linked)
		}
		return
	}

	for _, c := range spec.Children {
		switch c.Kind {
		case model.ChildFolder:
			t.folder(catalog, c.Folder)
		case model.ChildImageset:
			t.imageset(catalog, c.Ref)
		case model.ChildPlace:
			p, ok := t.st.Place(c.Ref)
			if !ok {
				t.dangling(catalog, model.ChildPlace, c.Ref)
				continue
			}
			for _, u := range p.ImagesetURLs() {
				t.imageset(catalog, u)
			}
		case model.ChildCatalog:
			linked, ok := t.st.Template(c.Ref)
			if !ok {
				t.dangling(catalog, model.ChildCatalog, c.Ref)
				continue
			}
			t.visit(linked)
		}
	}
}

func (t *tracer) imageset(catalog, url string) {
	i, ok := t.index[t.st.MainURL(url)]
	if !ok {
		t.dangling(catalog, model.ChildImageset, url)
		return
	}
	t.reach.Add(i)
}

func (t *tracer) dangling(catalog string, kind model.ChildKind, ref string) {
	t.result.Dangling = append(t.result.Dangling, Dangling{Catalog: catalog, Kind: kind.String(), Ref: ref})
	t.log.Warn().Str("catalog", catalog).Str("kind", kind.String()).Str("ref", ref).Msg("dangling reference")
}

func placesByImageset(st *store.Store) map[string][]string {
	users := make(map[string][]string)
	for _, p := range st.Places() {
		for _, u := range p.ImagesetURLs() {
			main := st.MainURL(u)
			users[main] = append(users[main], p.ID)
		}
	}
	return users
}
