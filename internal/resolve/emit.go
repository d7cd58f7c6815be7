package resolve

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/aidanlsb/skycat/internal/atomicfile"
	"github.com/aidanlsb/skycat/internal/wtml"
)

// Emitted describes one catalog document written by Emit.
type Emitted struct {
	Catalog string `json:"catalog"`
	File    string `json:"file"`
	Bytes   int    `json:"bytes"`
}

// Standalone returns the names of every template emitted as its own document.
func (r *Resolver) Standalone() []string {
	var names []string
	for _, t := range r.st.Templates() {
		if t.Standalone {
			names = append(names, t.Catalog)
		}
	}
	return names
}

// Emit resolves the named catalogs (every standalone one when names is
// empty) and writes each to out. All catalogs are resolved before the first
// file is written, so a failure leaves out untouched.
func (r *Resolver) Emit(out billy.Filesystem, names []string, mode Mode) ([]Emitted, error) {
	if len(names) == 0 {
		names = r.Standalone()
	}

	type doc struct {
		catalog, file string
		data          []byte
	}
	docs := make([]doc, 0, len(names))
	for _, name := range names {
		f, err := r.Resolve(name, mode)
		if err != nil {
			return nil, err
		}
		data, err := wtml.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		t, _ := r.st.Template(name)
		docs = append(docs, doc{catalog: name, file: FileName(t, mode), data: data})
	}

	emitted := make([]Emitted, 0, len(docs))
	for _, d := range docs {
		if err := atomicfile.WriteFile(out, d.file, d.data); err != nil {
			return emitted, fmt.Errorf("write %s: %w", d.file, err)
		}
		r.opts.Metrics.CatalogEmitted(mode.String())
		r.log.Debug().Str("catalog", d.catalog).Str("file", d.file).Int("bytes", len(d.data)).Msg("catalog emitted")
		emitted = append(emitted, Emitted{Catalog: d.catalog, File: d.file, Bytes: len(d.data)})
	}
	return emitted, nil
}

// Problem is one catalog that failed to resolve.
type Problem struct {
	Catalog string
	Err     error
}

// Check resolves every standalone catalog in absolute mode and returns every
// failure instead of stopping at the first.
func (r *Resolver) Check() []Problem {
	var problems []Problem
	for _, name := range r.Standalone() {
		if _, err := r.Resolve(name, Absolute); err != nil {
			problems = append(problems, Problem{Catalog: name, Err: err})
		}
	}
	return problems
}

// Err joins a list of problems into one error, or nil.
func Err(problems []Problem) error {
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p.Err)
	}
	return errors.Join(errs...)
}
