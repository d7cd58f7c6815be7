// Package config handles skycat store configuration.
//
// Settings come from skycat.toml at the store root, SKYCAT_* environment
// variables and built-in defaults, in that order of precedence from lowest to
// highest: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aidanlsb/skycat/internal/canon"
	"github.com/aidanlsb/skycat/internal/resolve"
)

// FileName is the name of the config file at the store root.
const FileName = "skycat.toml"

// EnvPrefix prefixes every environment override, e.g. SKYCAT_LOG_LEVEL.
const EnvPrefix = "SKYCAT"

// Defaults.
const (
	DefaultCatalogURL     = resolve.DefaultCatalogURL
	DefaultPlaceTolerance = 1e-6
	DefaultLogLevel       = "info"
)

// DefaultRoots are the root catalogs traced when none are configured.
var DefaultRoots = []string{"exploreroot6", "imagesets6"}

// Config is the configuration of one store.
type Config struct {
	// Roots are the catalogs the reachability trace starts from.
	Roots []string `mapstructure:"roots" toml:"roots"`

	// CatalogURL is the base URL of cross-file catalog links in absolute
	// mode.
	CatalogURL string `mapstructure:"catalog_url" toml:"catalog_url"`

	// PlaceTolerance is how far apart, in hours or degrees, two places'
	// coordinates may be and still match.
	PlaceTolerance float64 `mapstructure:"place_tolerance" toml:"place_tolerance"`

	// TraceAllow lists imageset URLs expected to be unreachable.
	TraceAllow []string `mapstructure:"trace_allow" toml:"trace_allow"`

	Log LogConfig `mapstructure:"log" toml:"log"`

	// MetricsFile, when set, receives the run's metrics in Prometheus text
	// format.
	MetricsFile string `mapstructure:"metrics_file" toml:"metrics_file,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`

	// Pretty forces human-readable console output. When unset it is chosen
	// when stderr is a terminal.
	Pretty *bool `mapstructure:"pretty" toml:"pretty,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Roots:          append([]string(nil), DefaultRoots...),
		CatalogURL:     DefaultCatalogURL,
		PlaceTolerance: DefaultPlaceTolerance,
		TraceAllow:     []string{},
		Log:            LogConfig{Level: DefaultLogLevel},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("roots", d.Roots)
	v.SetDefault("catalog_url", d.CatalogURL)
	v.SetDefault("place_tolerance", d.PlaceTolerance)
	v.SetDefault("trace_allow", d.TraceAllow)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", nil)
	v.SetDefault("metrics_file", "")
}

// Load reads the configuration of the store at root. When path is empty the
// file is root/skycat.toml and may be missing; an explicit path must exist.
func Load(root, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values viper cannot check by type alone.
func (c *Config) Validate() error {
	if c.PlaceTolerance <= 0 {
		return fmt.Errorf("place_tolerance must be positive, got %g", c.PlaceTolerance)
	}
	for _, r := range c.Roots {
		if !canon.ValidCatalogName(r) {
			return fmt.Errorf("root %q is not a valid catalog name", r)
		}
	}
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog_url must not be empty")
	}
	return nil
}
