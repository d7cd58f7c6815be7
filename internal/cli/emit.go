package cli

import (
	"strconv"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/ui"
)

type emitResult struct {
	Mode  string            `json:"mode"`
	Out   string            `json:"out"`
	Files []resolve.Emitted `json:"files"`
}

func (a *app) newEmitCmd() *cobra.Command {
	var (
		mode   = resolve.Absolute
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "emit [catalog...]",
		Short: "Write resolved catalog documents",
		Long: `Resolves the named catalogs, or every standalone catalog when none are
named, and writes one document per catalog into the output directory.

In absolute mode links between documents point at the catalog service; in
preview mode they are relative paths to the sibling files, named <catalog>_rel.
Every catalog is resolved before anything is written.`,
		Example: `  skycat emit
  skycat emit exploreroot6 --mode preview --out /tmp/preview`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			res := resolve.New(st, resolve.Options{CatalogURL: a.cfg.CatalogURL, Logger: a.log, Metrics: a.metrics})
			files, err := res.Emit(osfs.New(outDir), args, mode)
			if err != nil {
				return a.fail(err, "Run 'skycat check' to list every problem.")
			}

			if a.jsonOutput {
				a.outputSuccess(emitResult{Mode: mode.String(), Out: outDir, Files: files}, nil, a.meta(len(files)))
				return nil
			}

			tbl := ui.NewTable("catalog", "file", "bytes").Numeric(2).Width(a.display.TermWidth)
			for _, f := range files {
				tbl.AddRow(f.Catalog, f.File, strconv.Itoa(f.Bytes))
			}
			a.printf("%s", tbl.String())
			a.println(ui.Successf("Wrote %s in %s mode", ui.Count(len(files), "catalog", "catalogs"), mode))
			return nil
		},
	}

	cmd.Flags().Var(modeValue{&mode}, "mode", "Link mode: absolute or preview")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}
