package config

import (
	"time"

	"github.com/pateepk/agilesite-ci/internal/model"
)

// Config represents the complete cisync configuration.
type Config struct {
	Repository  RepositoryConfig   `yaml:"repository"`
	State       StateConfig        `yaml:"state"`
	Log         LogConfig          `yaml:"log"`
	Restore     RestoreConfig      `yaml:"restore"`
	ObjectTypes []ObjectTypeConfig `yaml:"object_types,omitempty"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

// RepositoryConfig defines where the repository lives and how it is encoded.
type RepositoryConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
	// RulesFile overrides the location of repository.config.
	RulesFile string `yaml:"rules_file,omitempty"`
}

// StateConfig defines the object store settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RestoreConfig defines restore behavior.
type RestoreConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	DeleteMissing bool          `yaml:"delete_missing"`
}

// ObjectTypeConfig registers an additional object type.
type ObjectTypeConfig struct {
	Name                  string   `yaml:"name"`
	IDColumn              string   `yaml:"id_column"`
	CodeNameColumn        string   `yaml:"code_name_column"`
	GUIDColumn            string   `yaml:"guid_column"`
	ParentType            string   `yaml:"parent_type,omitempty"`
	Dependencies          []string `yaml:"dependencies,omitempty"`
	SiteScoped            bool     `yaml:"site_scoped"`
	ContinuousIntegration *bool    `yaml:"continuous_integration,omitempty"`
	OriginalType          string   `yaml:"original_type,omitempty"`
	ByType                bool     `yaml:"by_type"`
	Optimize              bool     `yaml:"optimize"`
	Searchable            bool     `yaml:"searchable"`
	Columns               []string `yaml:"columns,omitempty"`
}

// TypeInfo converts the entry to a type descriptor. Continuous integration
// is enabled unless switched off explicitly.
func (o ObjectTypeConfig) TypeInfo() model.TypeInfo {
	ci := true
	if o.ContinuousIntegration != nil {
		ci = *o.ContinuousIntegration
	}
	return model.TypeInfo{
		Name:                  o.Name,
		IDColumn:              o.IDColumn,
		CodeNameColumn:        o.CodeNameColumn,
		GUIDColumn:            o.GUIDColumn,
		ParentType:            o.ParentType,
		Dependencies:          o.Dependencies,
		SiteScoped:            o.SiteScoped,
		ContinuousIntegration: ci,
		OriginalType:          o.OriginalType,
		ByType:                o.ByType,
		Optimize:              o.Optimize,
		Searchable:            o.Searchable,
		Columns:               o.Columns,
	}
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Path:     "./repository",
			Encoding: "utf-8",
		},
		State: StateConfig{
			Path: "./data/cisync.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Restore: RestoreConfig{
			MaxRetries:    0,
			RetryInterval: 200 * time.Millisecond,
		},
	}
}
