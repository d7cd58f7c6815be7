package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5"

	"github.com/aidanlsb/skycat/internal/atomicfile"
)

const header = `# skycat store configuration.
#
# Every key may be overridden by an environment variable named after it,
# prefixed with SKYCAT_ and with dots as underscores: SKYCAT_LOG_LEVEL.

`

// Save writes cfg to path on fsys atomically.
func Save(fsys billy.Filesystem, path string, cfg *Config) error {
	if cfg == nil {
		cfg = Default()
	}

	buf := bytes.NewBufferString(header)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicfile.WriteFile(fsys, path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// CreateDefault writes the default config to FileName on fsys unless a file
// is already there. It reports whether it wrote one.
func CreateDefault(fsys billy.Filesystem) (bool, error) {
	if _, err := fsys.Stat(FileName); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config: %w", err)
	}
	if err := Save(fsys, FileName, Default()); err != nil {
		return false, err
	}
	return true, nil
}
