package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr bool
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config",
			yaml: `
repository:
  path: ./repo
state:
  path: ./state.db
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.True(t, filepath.IsAbs(cfg.Repository.Path))
				assert.Equal(t, "repo", filepath.Base(cfg.Repository.Path))
				assert.Equal(t, "state.db", filepath.Base(cfg.State.Path))
				assert.Equal(t, "utf-8", cfg.Repository.Encoding)
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.Equal(t, 200*time.Millisecond, cfg.Restore.RetryInterval)
			},
		},
		{
			name: "env var interpolation",
			yaml: `
repository:
  path: ${CISYNC_TEST_REPO}
restore:
  max_retries: 3
  retry_interval: 1s
  delete_missing: true
`,
			env: map[string]string{"CISYNC_TEST_REPO": "/srv/repo"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/repo", cfg.Repository.Path)
				assert.Equal(t, 3, cfg.Restore.MaxRetries)
				assert.Equal(t, time.Second, cfg.Restore.RetryInterval)
				assert.True(t, cfg.Restore.DeleteMissing)
			},
		},
		{
			name: "unresolved env var",
			yaml: `
state:
  path: ${CISYNC_TEST_UNSET}/state.db
`,
			wantErr: true,
		},
		{
			name: "unknown encoding",
			yaml: `
repository:
  encoding: klingon
`,
			wantErr: true,
		},
		{
			name: "invalid log level",
			yaml: `
log:
  level: loud
`,
			wantErr: true,
		},
		{
			name: "optimize without by_type",
			yaml: `
object_types:
  - name: custom.widget
    optimize: true
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "repository: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "cisync.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Path)
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestCatalogIncludesConfiguredTypes(t *testing.T) {
	cfg, err := Parse([]byte(`
object_types:
  - name: custom.widget
    code_name_column: WidgetName
    dependencies: [cms.site]
    site_scoped: true
  - name: custom.legacy
    continuous_integration: false
`))
	require.NoError(t, err)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)

	widget, ok := catalog.Get("custom.widget")
	require.True(t, ok)
	assert.True(t, widget.ContinuousIntegration)
	assert.True(t, widget.SiteScoped)
	assert.Equal(t, []string{"cms.site"}, widget.Dependencies)

	legacy, ok := catalog.Get("custom.legacy")
	require.True(t, ok)
	assert.False(t, legacy.ContinuousIntegration)

	_, ok = catalog.Get("cms.user")
	assert.True(t, ok, "builtin types stay registered")
}

func TestCatalogRejectsBuiltinRedefinition(t *testing.T) {
	cfg, err := Parse([]byte(`
object_types:
  - name: CMS.User
`))
	require.NoError(t, err)

	_, err = cfg.Catalog()
	assert.Error(t, err)
}

func TestRulesPath(t *testing.T) {
	cfg := Defaults()
	cfg.Repository.Path = "/srv/repo"
	assert.Equal(t, filepath.Join("/srv/repo", "repository.config"), cfg.RulesPath())

	cfg.Repository.RulesFile = "/etc/cisync/repository.config"
	assert.Equal(t, "/etc/cisync/repository.config", cfg.RulesPath())
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv(EnvConfig, "")
	_, found := Discover()
	assert.False(t, found)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("{}"), 0o644))
	path, found := Discover()
	assert.True(t, found)
	assert.Equal(t, DefaultFileName, path)

	t.Setenv(EnvConfig, "/elsewhere/cisync.yaml")
	path, found = Discover()
	assert.True(t, found)
	assert.Equal(t, "/elsewhere/cisync.yaml", path)
}
