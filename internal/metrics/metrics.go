// Package metrics provides per-run Prometheus counters for skycat.
//
// Each command run gets its own registry. When a metrics file is configured
// the registry is written in the node_exporter textfile format at the end of
// the run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record kinds used as label values.
const (
	KindImageset = "imageset"
	KindPlace    = "place"
	KindTemplate = "template"
)

// Run holds the counters of one command run. A nil *Run records nothing.
type Run struct {
	Registry *prometheus.Registry

	RecordsCreated  *prometheus.CounterVec
	RecordsUpdated  *prometheus.CounterVec
	RecordsSkipped  *prometheus.CounterVec
	FilesWritten    *prometheus.CounterVec
	CatalogsEmitted *prometheus.CounterVec
}

// New creates a Run with a fresh registry.
func New() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Run{
		Registry: reg,
		RecordsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycat_records_created_total",
				Help: "Records created in the store",
			},
			[]string{"kind"},
		),
		RecordsUpdated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycat_records_updated_total",
				Help: "Stored records updated in place",
			},
			[]string{"kind"},
		),
		RecordsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycat_records_skipped_total",
				Help: "Candidate records skipped during ingest",
			},
			[]string{"kind", "reason"},
		),
		FilesWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycat_files_written_total",
				Help: "Record files written, by store partition",
			},
			[]string{"partition"},
		),
		CatalogsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycat_catalogs_emitted_total",
				Help: "Catalog documents emitted, by resolution mode",
			},
			[]string{"mode"},
		),
	}
}

func (r *Run) Created(kind string) {
	if r != nil {
		r.RecordsCreated.WithLabelValues(kind).Inc()
	}
}

func (r *Run) Updated(kind string) {
	if r != nil {
		r.RecordsUpdated.WithLabelValues(kind).Inc()
	}
}

func (r *Run) Skipped(kind, reason string) {
	if r != nil {
		r.RecordsSkipped.WithLabelValues(kind, reason).Inc()
	}
}

func (r *Run) FileWritten(partition string) {
	if r != nil {
		r.FilesWritten.WithLabelValues(partition).Inc()
	}
}

func (r *Run) CatalogEmitted(mode string) {
	if r != nil {
		r.CatalogsEmitted.WithLabelValues(mode).Inc()
	}
}

// WriteTextfile writes the registry to path in the text exposition format.
func (r *Run) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.Registry)
}
