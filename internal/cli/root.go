// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/skycat/internal/config"
	"github.com/aidanlsb/skycat/internal/logger"
	"github.com/aidanlsb/skycat/internal/metrics"
	"github.com/aidanlsb/skycat/internal/store"
	"github.com/aidanlsb/skycat/internal/ui"
)

// app holds the state of one invocation: global flags and what they resolve
// to.
type app struct {
	// Global flags
	rootPath    string
	configPath  string
	jsonOutput  bool
	logLevel    string
	metricsFile string

	// Resolved values
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Run
	display *ui.DisplayContext
	started time.Time

	out    io.Writer
	errOut io.Writer
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "skycat",
		Short: "skycat - maintain a sky imagery catalog as a store of records",
		Long: `skycat keeps imagesets, places and folder templates as one small YAML
file each, emits the resolved catalog documents clients load, ingests
documents back into the store, and derives the search index.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.finish()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.rootPath, "root", "C", ".", "Store root directory")
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default <root>/skycat.toml)")
	flags.BoolVar(&a.jsonOutput, "json", false, "Output in JSON format (for script use)")
	flags.Var(newEnumValue(&a.logLevel, "", "debug", "info", "warn", "error", "off"), "log-level",
		"Log level: debug, info, warn, error or off (overrides log.level)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write run metrics to this file (overrides metrics_file)")

	root.AddCommand(
		a.newInitCmd(),
		a.newCheckCmd(),
		a.newEmitCmd(),
		a.newIngestCmd(),
		a.newFormatCmd(),
		a.newTraceCmd(),
		a.newSearchdataCmd(),
		a.newQuarantineCmd(),
		a.newReportCmd(),
		a.newPartitionCmd(),
		a.newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	root := NewRootCmd(os.Stdout, os.Stderr)
	err := root.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, ui.Errorf("%v", err))
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	a.started = time.Now()
	a.display = ui.NewDisplayContext(a.out)
	a.cfg = config.Default()

	switch cmd.Name() {
	case "version", "help", "init":
		a.log = logger.New(logger.Config{Level: a.logLevelOr(config.DefaultLogLevel), Output: a.errOut, Pretty: logger.IsTerminal(a.errOut)})
		return nil
	}

	cfg, err := config.Load(a.rootPath, a.configPath)
	if err != nil {
		return a.fail(withCode(ErrConfigInvalid, err), "Run 'skycat init' to write a default config.")
	}
	a.cfg = cfg

	pretty := logger.IsTerminal(a.errOut)
	if cfg.Log.Pretty != nil {
		pretty = *cfg.Log.Pretty
	}
	a.log = logger.New(logger.Config{Level: a.logLevelOr(cfg.Log.Level), Pretty: pretty, Output: a.errOut})

	if a.metricsFile == "" {
		a.metricsFile = cfg.MetricsFile
	}
	if a.metricsFile != "" {
		a.metrics = metrics.New()
	}
	return nil
}

func (a *app) logLevelOr(level string) string {
	if a.logLevel != "" {
		return a.logLevel
	}
	return level
}

// finish writes the run metrics when a metrics file is configured.
func (a *app) finish() error {
	if a.metrics == nil || a.metricsFile == "" {
		return nil
	}
	path := a.metricsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.rootPath, path)
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		return a.fail(fmt.Errorf("failed to write metrics: %w", err), "")
	}
	a.log.Debug().Str("path", path).Msg("metrics written")
	return nil
}

func (a *app) fs() billy.Filesystem {
	return osfs.New(a.rootPath)
}

// fileFS splits a user-supplied file path into a filesystem rooted at its
// directory and the base name.
func fileFS(path string) (billy.Filesystem, string) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return osfs.New(dir), name
}

func (a *app) storeOptions() store.Options {
	return store.Options{Logger: a.log, Metrics: a.metrics}
}

// openStore loads the store at the root.
func (a *app) openStore() (*store.Store, error) {
	if _, err := os.Stat(a.rootPath); err != nil {
		return nil, fmt.Errorf("store root %s: %w", a.rootPath, err)
	}
	return store.Open(a.fs(), a.storeOptions())
}

func (a *app) meta(count int) *Meta {
	return &Meta{Count: count, DurationMs: time.Since(a.started).Milliseconds()}
}

func (a *app) println(args ...interface{}) {
	fmt.Fprintln(a.out, args...)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
