package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Adapter names accepted by Open.
const (
	AdapterSanity = "sanity"
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
)

// DefaultBackupDir is where backups are written when no directory is configured.
const DefaultBackupDir = "backups"

// Config is the operator configuration, usually read from mend.yaml.
type Config struct {
	Adapter    string `yaml:"adapter"`
	ProjectID  string `yaml:"project_id"`
	Dataset    string `yaml:"dataset"`
	Token      string `yaml:"token"`
	APIVersion string `yaml:"api_version"`
	Path       string `yaml:"path"`
	BackupDir  string `yaml:"backup_dir"`
	Keep       int    `yaml:"keep"`
	ReadOnly   bool   `yaml:"read_only"`
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadConfig reads a YAML configuration file. A missing file is not an
// error when optional is true.
func LoadConfig(path string, optional bool) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on cfg. SANITY_TOKEN is
// accepted when SANITY_API_TOKEN is unset.
func (c Config) ApplyEnv(lookup LookupFunc) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	set(&c.ProjectID, "SANITY_PROJECT_ID")
	set(&c.Dataset, "SANITY_DATASET")
	set(&c.Token, "SANITY_API_TOKEN", "SANITY_TOKEN")
	set(&c.APIVersion, "SANITY_API_VERSION")
	set(&c.Adapter, "MEND_ADAPTER")
	set(&c.Path, "MEND_PATH")
	return c
}

// Merge overlays the non-zero fields of o (usually command-line flags) on c.
func (c Config) Merge(o Config) Config {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&c.Adapter, o.Adapter)
	pick(&c.ProjectID, o.ProjectID)
	pick(&c.Dataset, o.Dataset)
	pick(&c.Token, o.Token)
	pick(&c.APIVersion, o.APIVersion)
	pick(&c.Path, o.Path)
	pick(&c.BackupDir, o.BackupDir)
	if o.Keep > 0 {
		c.Keep = o.Keep
	}
	c.ReadOnly = c.ReadOnly || o.ReadOnly
	return c
}

// Resolve builds the effective configuration: flags win over the
// environment, which wins over the file.
func Resolve(path string, flags Config, lookup LookupFunc) (Config, error) {
	cfg, err := LoadConfig(path, false)
	if err != nil {
		return Config{}, err
	}
	return cfg.ApplyEnv(lookup).Merge(flags).withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Adapter == "" {
		c.Adapter = AdapterSanity
	}
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}
	return c
}

// Validate checks the adapter-independent settings.
func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterSanity, AdapterFS, AdapterSQLite:
	default:
		return fmt.Errorf("unknown adapter: %s", c.Adapter)
	}
	if c.Adapter != AdapterSanity && c.Path == "" {
		return fmt.Errorf("adapter %s requires a path", c.Adapter)
	}
	if c.Keep < 0 {
		return fmt.Errorf("keep must not be negative: %d", c.Keep)
	}
	return nil
}

// Label names the data set the configuration points at, for backups and logs.
func (c Config) Label() string {
	if c.Dataset != "" {
		return c.Dataset
	}
	return "default"
}
