package cli

import (
	"errors"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/atomicfile"
	"github.com/aidanlsb/skycat/internal/searchdata"
	"github.com/aidanlsb/skycat/internal/ui"
)

type searchdataResult struct {
	Out         string `json:"out"`
	Format      string `json:"format"`
	Places      int    `json:"places"`
	CatalogRows int    `json:"catalog_rows"`
	NonFinite   int    `json:"non_finite,omitempty"`
	Bytes       int    `json:"bytes"`
}

func (a *app) newSearchdataCmd() *cobra.Command {
	var (
		catalogs string
		format   string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "searchdata",
		Short: "Project the search index",
		Long: `Builds the client search index from every sky place in the store plus the
supplementary catalog files in --catalogs. Entries are grouped by
constellation; non-finite numbers become null.

The pretty format is plain JSON. The compact format is the script form the
client loads.`,
		Example: `  skycat searchdata --catalogs catfiles --out search.json
  skycat searchdata --catalogs catfiles --format compact --out searchdata.js`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			opts := searchdata.Options{Logger: a.log}
			if catalogs != "" {
				if !filepath.IsAbs(catalogs) {
					catalogs = filepath.Join(a.rootPath, catalogs)
				}
				opts.Catalogs = osfs.New(catalogs)
			}

			idx, err := searchdata.Project(st, opts)
			if err != nil {
				return a.fail(err, "")
			}

			text := idx.Pretty()
			if format == "compact" {
				text = idx.Compact()
			}

			var warnings []Warning
			for _, w := range idx.Warnings {
				warnings = append(warnings, Warning{Code: "SEARCHDATA", Message: w})
			}

			if out == "" {
				if a.jsonOutput {
					return a.fail(withCode(ErrInvalidInput, errors.New("--json needs an --out file")), "Pass --out with --json.")
				}
				a.printf("%s", text)
				return nil
			}

			fsys, name := fileFS(out)
			if err := atomicfile.WriteFile(fsys, name, []byte(text)); err != nil {
				return a.fail(err, "")
			}

			if a.jsonOutput {
				a.outputSuccess(searchdataResult{
					Out:         out,
					Format:      format,
					Places:      idx.Places,
					CatalogRows: idx.CatalogRows,
					NonFinite:   idx.NonFinite,
					Bytes:       len(text),
				}, warnings, a.meta(idx.Places+idx.CatalogRows))
				return nil
			}
			for _, w := range idx.Warnings {
				a.println(ui.Warningf("%s", w))
			}
			a.println(ui.Successf("Wrote %s: %s, %s", ui.Key(out),
				ui.Count(idx.Places, "place", "places"),
				ui.Count(idx.CatalogRows, "catalog row", "catalog rows")))
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogs, "catalogs", "", "Directory of supplementary catalog files (relative to the root)")
	cmd.Flags().Var(newEnumValue(&format, "pretty", "pretty", "compact"), "format", "Output format: pretty or compact")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
