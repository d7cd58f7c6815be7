package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/config"
	"github.com/aidanlsb/skycat/internal/ui"
)

type initResult struct {
	Root          string   `json:"root"`
	ConfigCreated bool     `json:"config_created"`
	Directories   []string `json:"directories"`
}

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty store with a default config",
		Long: `Creates the record partitions and a default skycat.toml at the store root.
An existing config is left untouched, so init is safe to run on a populated store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := a.fs()
			res := initResult{Root: a.rootPath}
			for _, dir := range []string{canon.ImagesetDir, canon.PlaceDir, canon.CatfileDir, canon.QuarantineDir} {
				if err := fsys.MkdirAll(dir, 0o755); err != nil {
					return a.fail(fmt.Errorf("failed to create %s: %w", dir, err), "")
				}
				res.Directories = append(res.Directories, dir)
			}

			created, err := config.CreateDefault(fsys)
			if err != nil {
				return a.fail(err, "")
			}
			res.ConfigCreated = created

			if a.jsonOutput {
				a.outputSuccess(res, nil, nil)
				return nil
			}
			a.println(ui.Successf("Initialized store at %s", ui.Key(a.rootPath)))
			if created {
				a.println(ui.Hint("  wrote " + config.FileName))
			} else {
				a.println(ui.Hint("  kept existing " + config.FileName))
			}
			return nil
		},
	}
}
