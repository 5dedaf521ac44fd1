package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the fixrun configuration surface consumed by the core:
// values only, already parsed and merged. Pointer-typed booleans
// distinguish "unset" from "explicitly false" so CLI flags can override
// file values cleanly.
type Config struct {
	// Workers is the worker pool size; 0 or unset means auto-detect.
	Workers int `yaml:"workers,omitempty"`

	FailFast *bool `yaml:"failFast,omitempty"`

	// Retry is the per-test retry budget for failing bodies.
	Retry int `yaml:"retry,omitempty"`

	NamePatterns   []string `yaml:"namePatterns,omitempty"`
	TagExpressions []string `yaml:"tagExpressions,omitempty"`

	NoCache    *bool `yaml:"noCache,omitempty"`
	NoParallel *bool `yaml:"noParallel,omitempty"`

	// CacheDir is where the duration cache lives.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// Shell overrides the executor shell.
	Shell string `yaml:"shell,omitempty"`

	// EnvFile is a .env file loaded into every command's environment.
	EnvFile string `yaml:"envFile,omitempty"`

	NoColor *bool `yaml:"noColor,omitempty"`
	Verbose *bool `yaml:"verbose,omitempty"`
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(b bool) *bool { return &b }

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFailFast returns the fail-fast setting, defaulting to false.
func (c *Config) GetFailFast() bool { return getBool(c.FailFast, false) }

// GetNoCache returns the no-cache setting, defaulting to false.
func (c *Config) GetNoCache() bool { return getBool(c.NoCache, false) }

// GetNoParallel returns the no-parallel setting, defaulting to false.
func (c *Config) GetNoParallel() bool { return getBool(c.NoParallel, false) }

// GetNoColor returns the no-color setting, defaulting to false.
func (c *Config) GetNoColor() bool { return getBool(c.NoColor, false) }

// GetVerbose returns the verbose setting, defaulting to false.
func (c *Config) GetVerbose() bool { return getBool(c.Verbose, false) }

// EffectiveWorkers resolves the worker count: no-parallel forces one
// worker, 0/unset auto-detects available parallelism.
func (c *Config) EffectiveWorkers() int {
	if c.GetNoParallel() {
		return 1
	}
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// ConfigFilenames lists the config file names searched, in order.
var ConfigFilenames = []string{
	".fixrun.yaml",
	"fixrun.yaml",
	".fixrun.yml",
	"fixrun.yml",
}

// Load reads configuration from the given path, or searches the
// current directory when the path is empty. A missing config file is
// not an error; defaults apply.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches dir for a config file and loads the first match.
func FindAndLoad(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadFile(configPath)
		}
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge merges another config into this one, with other taking
// precedence. Boolean pointers only override when explicitly set.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Workers > 0 {
		result.Workers = other.Workers
	}
	if other.Retry > 0 {
		result.Retry = other.Retry
	}
	if other.CacheDir != "" {
		result.CacheDir = other.CacheDir
	}
	if other.Shell != "" {
		result.Shell = other.Shell
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if len(other.NamePatterns) > 0 {
		result.NamePatterns = other.NamePatterns
	}
	if len(other.TagExpressions) > 0 {
		result.TagExpressions = other.TagExpressions
	}

	if other.FailFast != nil {
		result.FailFast = other.FailFast
	}
	if other.NoCache != nil {
		result.NoCache = other.NoCache
	}
	if other.NoParallel != nil {
		result.NoParallel = other.NoParallel
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	return &result
}
