package cli

import (
	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/ui"
)

func (a *app) newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Move and rewrite records into canonical form",
		Long: `Recomputes where every record belongs, moves misplaced files, and rewrites
records whose file differs from the canonical encoding. Directories left empty
are removed. Running format twice in a row changes nothing the second time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.storeOptions()
			opts.AllowMisplaced = true
			st, err := store.Open(a.fs(), opts)
			if err != nil {
				return a.fail(err, "")
			}

			report, err := st.Relocate()
			if err != nil {
				return a.fail(err, "")
			}

			if a.jsonOutput {
				a.outputSuccess(report, nil, a.meta(len(report.Moved)+len(report.Rewritten)))
				return nil
			}
			if !report.Changed() {
				a.println(ui.Successf("Store is already canonical"))
				return nil
			}
			for _, m := range report.Moved {
				a.printf("  moved %s\n", ui.Key(m.Key))
				a.println(ui.Hint("      " + m.From + " " + ui.SymbolArrow + " " + m.To))
			}
			for _, p := range report.Rewritten {
				a.printf("  rewrote %s\n", p)
			}
			a.println(ui.Successf("Moved %s, rewrote %s",
				ui.Count(len(report.Moved), "record", "records"),
				ui.Count(len(report.Rewritten), "file", "files")))
			return nil
		},
	}
}
