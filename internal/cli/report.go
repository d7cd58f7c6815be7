package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/index"
	"github.com/aidanlsb/skycat/internal/ui"
)

type reportResult struct {
	Indexed   *index.Stats        `json:"indexed"`
	Buckets   []index.BucketCount `json:"buckets"`
	BandPass  []index.LabelCount  `json:"band_pass"`
	Unused    []string            `json:"unused_imagesets"`
	Partition []string            `json:"partition,omitempty"`
}

func (a *app) newReportCmd() *cobra.Command {
	var partitions []string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the store from its SQLite index",
		Long: `Rebuilds the SQLite index under .skycat/ from the store and prints record
counts per partition and bucket, production imagesets per band pass, and the
imagesets no place uses as imagery. Only one run may hold the index at a time.`,
		Example: `  skycat report
  skycat report --partition places --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			db, err := index.Open(a.rootPath)
			if err != nil {
				return a.fail(err, "Another skycat report may be running.")
			}
			defer db.Close()

			stats, err := db.Rebuild(st)
			if err != nil {
				return a.fail(err, "")
			}
			a.log.Debug().
				Int("imagesets", stats.Imagesets).
				Int("places", stats.Places).
				Int("templates", stats.Templates).
				Msg("index rebuilt")

			res := reportResult{Indexed: stats, Partition: partitions}
			if res.Buckets, err = db.BucketCounts(partitions...); err != nil {
				return a.fail(err, "")
			}
			if res.BandPass, err = db.BandPassCounts(); err != nil {
				return a.fail(err, "")
			}
			if res.Unused, err = db.UnusedImagesets(); err != nil {
				return a.fail(err, "")
			}

			if a.jsonOutput {
				a.outputSuccess(res, nil, a.meta(len(res.Buckets)))
				return nil
			}

			a.println(ui.Header("Records"))
			tbl := ui.NewTable("partition", "bucket", "records").Numeric(2).Width(a.display.TermWidth)
			for _, b := range res.Buckets {
				tbl.AddRow(b.Partition, b.Bucket, strconv.Itoa(b.Records))
			}
			a.printf("%s", tbl.String())

			a.println()
			a.println(ui.Header("Band passes"))
			tbl = ui.NewTable("band pass", "imagesets").Numeric(1)
			for _, c := range res.BandPass {
				tbl.AddRow(c.Label, strconv.Itoa(c.Records))
			}
			a.printf("%s", tbl.String())

			a.println()
			if len(res.Unused) == 0 {
				a.println(ui.Successf("Every imageset is used by a place"))
				return nil
			}
			a.println(ui.Header(ui.Count(len(res.Unused), "imageset without a place", "imagesets without a place")))
			for _, u := range res.Unused {
				a.println("  " + ui.Truncate(u, a.display.TermWidth-2))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&partitions, "partition", nil, "Only count these partitions (imagesets, places, catfiles, quarantine)")
	return cmd
}
