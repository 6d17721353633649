package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/repoconfig"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or set $%s", absPath, EnvConfig)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Path = absPath
	cfg.resolvePaths(filepath.Dir(absPath))
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyConfigDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads the discovered configuration file, or returns the
// defaults when there is none.
func LoadOrDefault() (*Config, error) {
	path, found := Discover()
	if !found {
		return Defaults(), nil
	}
	return Load(path)
}

// resolvePaths makes relative paths relative to the config file directory.
func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Repository.Path = abs(c.Repository.Path)
	c.Repository.RulesFile = abs(c.Repository.RulesFile)
	c.State.Path = abs(c.State.Path)
}

func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Repository.Path == "" {
		cfg.Repository.Path = defaults.Repository.Path
	}
	if cfg.Repository.Encoding == "" {
		cfg.Repository.Encoding = defaults.Repository.Encoding
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Restore.RetryInterval == 0 {
		cfg.Restore.RetryInterval = defaults.Restore.RetryInterval
	}
}

func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Left in place so validation can name the missing variable.
		return match
	})
}

func validate(cfg *Config) error {
	for field, value := range map[string]string{
		"repository.path": cfg.Repository.Path,
		"state.path":      cfg.State.Path,
	} {
		if m := envVarPattern.FindStringSubmatch(value); m != nil {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
		}
	}

	if _, err := textenc.Resolve(cfg.Repository.Encoding); err != nil {
		return fmt.Errorf("repository.encoding: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", cfg.Log.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("log.format must be json or text (got %q)", cfg.Log.Format)
	}

	if cfg.Restore.MaxRetries < 0 {
		return fmt.Errorf("restore.max_retries must not be negative")
	}
	if cfg.Restore.RetryInterval < 0 {
		return fmt.Errorf("restore.retry_interval must not be negative")
	}

	for i, ot := range cfg.ObjectTypes {
		if strings.TrimSpace(ot.Name) == "" {
			return fmt.Errorf("object_types[%d].name is required", i)
		}
		if ot.Optimize && !ot.ByType {
			return fmt.Errorf("object_types[%d] (%s): optimize requires by_type", i, ot.Name)
		}
	}
	return nil
}

// Catalog returns the builtin object types plus the configured ones.
func (c *Config) Catalog() (*model.Catalog, error) {
	catalog := model.NewBuiltinCatalog()
	for i, ot := range c.ObjectTypes {
		if err := catalog.Register(ot.TypeInfo()); err != nil {
			return nil, fmt.Errorf("object_types[%d]: %w", i, err)
		}
	}
	return catalog, nil
}

// Encoding resolves the configured repository encoding.
func (c *Config) Encoding() (*textenc.Policy, error) {
	return textenc.Resolve(c.Repository.Encoding)
}

// RulesPath returns the repository configuration file location.
func (c *Config) RulesPath() string {
	if c.Repository.RulesFile != "" {
		return c.Repository.RulesFile
	}
	return filepath.Join(c.Repository.Path, repoconfig.FileName)
}

// LockPath returns the lock file guarding restores into the state database.
func (c *Config) LockPath() string {
	return c.State.Path + ".lock"
}
