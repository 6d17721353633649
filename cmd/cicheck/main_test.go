package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pateepk/agilesite-ci/internal/config"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/orchestrator"
	"github.com/pateepk/agilesite-ci/internal/provider"
	"github.com/pateepk/agilesite-ci/internal/repository"
	"github.com/pateepk/agilesite-ci/internal/storage"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRunIdenticalTrees(t *testing.T) {
	files := map[string]string{"cms.user/admin.xml": "<object/>\n"}
	a, b := writeTree(t, files), writeTree(t, files)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{a, b}, &stdout, &stderr)
	assert.Equal(t, exitClean, code)
	assert.Contains(t, stdout.String(), "The trees are identical.")
}

func TestRunReportsIssues(t *testing.T) {
	a := writeTree(t, map[string]string{"a.xml": "abc\ndef\n", "b.xml": "x"})
	b := writeTree(t, map[string]string{"a.xml": "abc\ndxf\n", "c.xml": "y"})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{a, b}, &stdout, &stderr)
	assert.Equal(t, exitIssues, code)
	out := stdout.String()
	assert.Contains(t, out, "a.xml: content differs at line 2, column 2")
	assert.Contains(t, out, "c.xml: extra file")
	assert.Contains(t, out, "b.xml: missing file")
	assert.Contains(t, out, "3 issue(s) found.")
}

func TestRunBadUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"only-one"}, {"a", "b", "c"}, {"-regenerate", "out"}, {"-nope"}} {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitBadUsage, run(context.Background(), args, &stdout, &stderr), args)
	}
}

func TestRunMissingTree(t *testing.T) {
	a := writeTree(t, nil)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{a, filepath.Join(a, "absent")}, &stdout, &stderr)
	assert.Equal(t, exitIssues, code)
	assert.Contains(t, stderr.String(), "Comparison failed")
}

func TestRunRegenerate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cisync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
repository:
  path: ./repository
state:
  path: ./cms.db
log:
  level: error
`), 0o644))
	t.Setenv(config.EnvConfig, cfgPath)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	catalog := model.NewBuiltinCatalog()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	require.NoError(t, err)
	p := provider.NewSQLite(db, catalog)
	require.NoError(t, p.Put(ctx, &model.Object{Type: "cms.user", CodeName: "admin", Fields: map[string]string{"Email": "a@example.com"}}))
	require.NoError(t, p.Put(ctx, &model.Object{Type: "cms.country", CodeName: "DE"}))

	repoCfg, err := repository.NewConfig(cfg.Repository.Path, nil, nil, catalog)
	require.NoError(t, err)
	res, err := orchestrator.NewSerializer(repoCfg, p, nil).StoreAll(ctx, nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	require.NoError(t, os.WriteFile(repoCfg.RulesPath(), []byte("<RepositoryConfiguration/>"), 0o644))
	require.NoError(t, db.Close())

	out := filepath.Join(dir, "regenerated")
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-regenerate", out, cfg.Repository.Path}, &stdout, &stderr)
	assert.Equal(t, exitClean, code, stdout.String()+stderr.String())
	assert.FileExists(t, filepath.Join(out, "cms.user", "admin.xml"))
	assert.FileExists(t, filepath.Join(out, "repository.config"))
}
