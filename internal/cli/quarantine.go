package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/ui"
)

type quarantineResult struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
	Path   string `json:"path"`
}

func (a *app) newQuarantineCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "quarantine <url>",
		Short: "Withdraw an imageset from production",
		Long: `Moves a production imageset into the quarantine partition with the reason
it was withdrawn. Quarantined imagesets are never emitted, and ingesting
their URL again is refused.`,
		Example: `  skycat quarantine http://example.org/broken/{1}/{3}/{3}_{2}.png --reason "tiles 404"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return a.fail(withCode(ErrInvalidInput, errors.New("--reason is required")), "")
			}
			st, err := a.openStore()
			if err != nil {
				return a.fail(err, "")
			}
			url := args[0]
			if err := st.Quarantine(url, reason); err != nil {
				return a.fail(err, "")
			}

			q, _ := st.Quarantined(url)
			path := canon.QuarantineLocation(&q.Imageset).String()
			if a.jsonOutput {
				a.outputSuccess(quarantineResult{URL: url, Reason: q.Reason, Path: path}, nil, nil)
				return nil
			}
			a.println(ui.Successf("Quarantined %s", ui.Key(url)))
			a.println(ui.Hint("  " + path))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the imageset is withdrawn (required)")
	return cmd
}
