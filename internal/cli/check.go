package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/resolve"
	"github.com/aidanlsb/skycat/internal/ui"
)

type checkProblem struct {
	Catalog string `json:"catalog"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type checkResult struct {
	Imagesets   int            `json:"imagesets"`
	Places      int            `json:"places"`
	Templates   int            `json:"templates"`
	Quarantined int            `json:"quarantined"`
	Catalogs    int            `json:"catalogs"`
	Problems    []checkProblem `json:"problems,omitempty"`
}

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the store and resolve every standalone catalog",
		Long: `Loads every record, failing on parse errors and store corruption, then
resolves each standalone catalog and lists every dangling or cyclic reference
instead of stopping at the first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "Run 'skycat format' if records are only misplaced.")
			}

			res := resolve.New(st, resolve.Options{CatalogURL: a.cfg.CatalogURL, Logger: a.log})
			problems := res.Check()

			result := checkResult{
				Imagesets:   len(st.Imagesets()),
				Places:      len(st.Places()),
				Templates:   len(st.Templates()),
				Quarantined: len(st.QuarantinedImagesets()),
				Catalogs:    len(res.Standalone()),
			}
			for _, p := range problems {
				result.Problems = append(result.Problems, checkProblem{Catalog: p.Catalog, Code: errorCode(p.Err), Message: p.Err.Error()})
			}

			if len(problems) > 0 {
				err := withCode(ErrCheckFailed, fmt.Errorf("%s failed to resolve", ui.Count(len(problems), "catalog", "catalogs")))
				if !a.jsonOutput {
					for _, p := range result.Problems {
						a.println(ui.Errorf("%s: %s", ui.Key(p.Catalog), p.Message))
					}
				}
				return a.failWithDetails(err, "", result)
			}

			if a.jsonOutput {
				a.outputSuccess(result, nil, a.meta(result.Catalogs))
				return nil
			}
			a.println(ui.Successf("Store is consistent"))
			a.println(ui.Hint(fmt.Sprintf("  %s, %s, %s, %s; %s resolved",
				ui.Count(result.Imagesets, "imageset", "imagesets"),
				ui.Count(result.Places, "place", "places"),
				ui.Count(result.Templates, "template", "templates"),
				ui.Count(result.Quarantined, "quarantined imageset", "quarantined imagesets"),
				ui.Count(result.Catalogs, "catalog", "catalogs"))))
			return nil
		},
	}
}
