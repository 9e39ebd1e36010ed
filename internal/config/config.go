// Package config loads the per-user tool configuration: defaults that
// would otherwise be repeated as flags on every invocation.
package config

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Config carries the user-level defaults. Flags override these.
type Config struct {
	FabricCSV  string  `yaml:"fabric"`
	OutputDir  string  `yaml:"output"`
	PnrCommand string  `yaml:"pnr_command"`
	PipDelay   float64 `yaml:"pip_delay"`
}

const configFileName = "fabgen.yaml"

// DefaultPipDelay is used for every pip when the configuration does not
// set one.
const DefaultPipDelay = 8.0

var loaded *Config

// Dir returns the configuration directory, honoring FABGEN_CONFIG_DIR
// and XDG_CONFIG_HOME before falling back to ~/.config/fabgen.
func Dir() (string, error) {
	if d := os.Getenv("FABGEN_CONFIG_DIR"); d != "" {
		return d, nil
	}
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "fabgen"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "fabgen"), nil
}

// Load reads the configuration file, returning defaults when the file
// is missing or unreadable. A broken file never aborts the tool.
func Load() Config {
	c := Config{PipDelay: DefaultPipDelay}

	dir, err := Dir()
	if err != nil {
		log.Debugf("cannot locate configuration directory: %v, using defaults", err)
		return c
	}
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("no configuration at %s, using defaults", path)
		return c
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		log.Debugf("cannot parse configuration at %s: %v, using defaults", path, err)
		return Config{PipDelay: DefaultPipDelay}
	}
	log.Debugf("loaded configuration from %s", path)
	return c
}

// Get returns the configuration, loading it on first use.
func Get() Config {
	if loaded == nil {
		c := Load()
		loaded = &c
	}
	return *loaded
}
