package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/trace"
	"github.com/aidanlsb/skycat/internal/ui"
)

func (a *app) newTraceCmd() *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Find stored imagesets no root catalog reaches",
		Long: `Walks the root catalogs the way emit resolves them and lists every stored
imageset the walk never reaches, with the places that use it. URLs in
trace_allow are expected to be unreachable and are reported separately.
Dangling references met along the way are listed rather than fatal.

The command fails when anything unreachable, dangling or missing is found.`,
		Example: `  skycat trace
  skycat trace --roots exploreroot6,mars`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}

			if !cmd.Flags().Changed("roots") {
				roots = a.cfg.Roots
			}
			result := trace.Trace(st, trace.Options{
				Roots:      roots,
				Allow:      a.cfg.TraceAllow,
				CatalogURL: a.cfg.CatalogURL,
				Logger:     a.log,
			})

			var warnings []Warning
			for _, u := range result.StaleAllow {
				warnings = append(warnings, Warning{Code: "STALE_ALLOW", Message: "allowed URL is not a stored imageset", Ref: u})
			}

			if !result.Clean() {
				if !a.jsonOutput {
					a.printTrace(result)
				}
				err := withCode(ErrTraceUnclean, fmt.Errorf("%s unreachable, %s, %s",
					ui.Count(len(result.Unreachable), "imageset", "imagesets"),
					ui.Count(len(result.Dangling), "dangling reference", "dangling references"),
					ui.Count(len(result.MissingRoots), "missing root", "missing roots")))
				return a.failWithDetails(err, "", result)
			}

			if a.jsonOutput {
				a.outputSuccess(result, warnings, a.meta(result.Reachable))
				return nil
			}
			a.printTrace(result)
			a.println(ui.Successf("All %s reachable from %s",
				ui.Count(result.Stored-len(result.Allowed), "imageset", "imagesets"),
				strings.Join(result.Roots, ", ")))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roots, "roots", nil, "Root catalogs to walk from (default from roots)")
	return cmd
}

func (a *app) printTrace(r *trace.Result) {
	for _, root := range r.MissingRoots {
		a.println(ui.Errorf("root catalog %s does not exist", ui.Key(root)))
	}
	for _, d := range r.Dangling {
		a.println(ui.Errorf("%s: %s %s does not exist", ui.Key(d.Catalog), d.Kind, d.Ref))
	}
	if len(r.Unreachable) > 0 {
		tbl := ui.NewTable("url", "name", "places").Width(a.display.TermWidth)
		for _, u := range r.Unreachable {
			tbl.AddRow(u.URL, u.Name, strings.Join(u.Places, " "))
		}
		a.printf("%s", tbl.String())
	}
	for _, u := range r.StaleAllow {
		a.println(ui.Warningf("trace_allow entry %s is not a stored imageset", ui.Key(u)))
	}
	if len(r.Allowed) > 0 {
		a.println(ui.Hint(fmt.Sprintf("  %s allowed", ui.Count(len(r.Allowed), "unreachable imageset", "unreachable imagesets"))))
	}
}
