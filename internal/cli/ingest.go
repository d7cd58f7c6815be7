package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/ingest"
	"github.com/aidanlsb/skycat/internal/ui"
)

func (a *app) newIngestCmd() *cobra.Command {
	var (
		opts      ingest.Options
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Merge a catalog document into the store",
		Long: `Decomposes a catalog document into imagesets and places, matches them
against the store, and saves what is new or changed. Nothing is written when
the document does not parse.

With --target the document's top-level entries are spliced into an existing
catalog; with --emit a catalog mirroring the document is created or replaced.`,
		Example: `  skycat ingest new-images.wtml --target exploreroot6 --at 0
  skycat ingest survey.wtml --emit survey --standalone
  curl -s https://example.org/cat.wtml | skycat ingest - --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Target != "" && opts.Emit != "" {
				return a.fail(withCode(ErrInvalidInput, fmt.Errorf("--target and --emit are mutually exclusive")), "")
			}

			var (
				r      io.Reader
				source = args[0]
			)
			if source == "-" {
				r = cmd.InOrStdin()
				source = "<stdin>"
			} else {
				f, err := os.Open(source)
				if err != nil {
					return a.fail(withCode(ErrInvalidInput, err), "")
				}
				defer f.Close()
				r = f
			}

			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			opts.Tolerance = a.cfg.PlaceTolerance
			if cmd.Flags().Changed("tolerance") {
				if tolerance <= 0 {
					return a.fail(withCode(ErrInvalidInput, fmt.Errorf("--tolerance must be positive, got %g", tolerance)), "")
				}
				opts.Tolerance = tolerance
			}
			opts.Logger = a.log
			opts.Metrics = a.metrics

			report, err := ingest.New(st, opts).IngestReader(r, source)
			if err != nil {
				return a.fail(err, "")
			}

			if a.jsonOutput {
				var warnings []Warning
				for _, s := range report.Skips {
					warnings = append(warnings, Warning{Code: "SKIPPED_" + strings.ToUpper(s.Kind), Message: s.Reason, Ref: s.Key})
				}
				for _, u := range report.LinkFolders {
					warnings = append(warnings, Warning{Code: "LINK_FOLDER", Message: "linked catalog can be ingested separately", Ref: u})
				}
				a.outputSuccess(report, warnings, a.meta(len(report.Records)))
				return nil
			}
			a.printIngestReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "Existing catalog to splice the document's entries into")
	cmd.Flags().IntVar(&opts.InsertAt, "at", 0, "Splice position within --target (negative appends)")
	cmd.Flags().StringVar(&opts.Emit, "emit", "", "Catalog to create or replace from the document")
	cmd.Flags().BoolVar(&opts.Standalone, "standalone", false, "Mark the --emit catalog as its own document")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Place coordinate tolerance (default from place_tolerance)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func (a *app) printIngestReport(r *ingest.Report) {
	verb := "Ingested"
	if r.DryRun {
		verb = "Would ingest"
	}
	a.println(ui.Header(fmt.Sprintf("%s %s", verb, r.Source)))

	tbl := ui.NewTable("", "created", "updated", "unchanged", "skipped").Numeric(1, 2, 3, 4)
	for _, row := range []struct {
		name string
		c    ingest.Counts
	}{{"imagesets", r.Imagesets}, {"places", r.Places}} {
		tbl.AddRow(row.name, strconv.Itoa(row.c.Created), strconv.Itoa(row.c.Updated), strconv.Itoa(row.c.Unchanged), strconv.Itoa(row.c.Skipped))
	}
	a.printf("%s", tbl.String())

	for _, rec := range r.Records {
		label := rec.Key
		if rec.Name != "" {
			label = fmt.Sprintf("%s (%s)", rec.Name, rec.Key)
		}
		a.printf("  %s %s %s\n", rec.Action, rec.Kind, ui.Key(label))
		for _, c := range rec.Changes {
			a.println(ui.Hint("      " + c.String()))
		}
	}
	for _, s := range r.Skips {
		a.println(ui.Warningf("skipped %s %s: %s", s.Kind, ui.Key(s.Key), s.Reason))
	}
	for _, u := range r.LinkFolders {
		a.println(ui.Infof("linked catalog %s can be ingested separately", ui.Key(u)))
	}
	if r.Template != "" {
		a.println(ui.Successf("catalog %s %s", ui.Key(r.Template), r.TemplateAction))
	}
}
