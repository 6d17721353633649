package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pateepk/agilesite-ci/internal/hashing"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig(t.TempDir(), textenc.MustResolve("utf-8"), nil, model.NewBuiltinCatalog())
	require.NoError(t, err)
	return cfg
}

func typeInfo(t *testing.T, cfg *Config, name string) *model.TypeInfo {
	t.Helper()
	info, ok := cfg.Catalog.Get(name)
	require.True(t, ok, name)
	return info
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "administrator", SafeName("Administrator"))
	assert.Equal(t, "cms.user", SafeName("cms.user"))

	spaced := SafeName("My Template")
	assert.True(t, strings.HasPrefix(spaced, "my_template@"), spaced)
	assert.NotEqual(t, spaced, SafeName("My_Template"), "sanitized names stay distinct")

	assert.True(t, strings.HasPrefix(SafeName(".."), "_.@"))
	assert.True(t, strings.HasPrefix(SafeName(""), "@"))
}

func TestObjectPath(t *testing.T) {
	cfg := newTestConfig(t)

	tests := []struct {
		name string
		typ  string
		obj  *model.Object
		want string
	}{
		{"global", "cms.user", &model.Object{CodeName: "Admin"}, "cms.user/admin.xml"},
		{"site scoped global", "cms.settingskey", &model.Object{CodeName: "CMSKey"}, "cms.settingskey/@global/cmskey.xml"},
		{"site scoped", "cms.settingskey", &model.Object{CodeName: "CMSKey", Site: "Main"}, "cms.settingskey/main/cmskey.xml"},
		{"parent", "cms.pagetemplate", &model.Object{CodeName: "child", Parent: "root"}, "cms.pagetemplate/root/child.xml"},
		{"by type", "cms.country", &model.Object{CodeName: "CZ"}, "cms.country/@objects.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectPath(typeInfo(t, cfg, tt.typ), tt.obj))
		})
	}
}

func TestMarshalIsCanonical(t *testing.T) {
	info := &model.TypeInfo{Name: "cms.user"}
	obj := &model.Object{
		Type:     "cms.user",
		ID:       42,
		GUID:     "8d7f-1",
		CodeName: "admin",
		Fields:   map[string]string{"Zeta": "z", "Alpha": "a & <b>", "Multi": "line1\nline2"},
	}

	first, err := MarshalObject(info, obj, "utf-8")
	require.NoError(t, err)
	second, err := MarshalObject(info, obj.Clone(), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	text := string(first)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Less(t, strings.Index(text, `name="Alpha"`), strings.Index(text, `name="Zeta"`))
	assert.NotContains(t, text, "42", "database IDs are not serialized")

	back, err := UnmarshalObject(first)
	require.NoError(t, err)
	assert.Equal(t, obj.Fields, back.Fields)
	assert.Equal(t, "admin", back.CodeName)
	assert.Equal(t, "8d7f-1", back.GUID)
}

func TestMarshalOnlyTrackedColumns(t *testing.T) {
	info := &model.TypeInfo{Name: "cms.user", Columns: []string{"Email"}}
	data, err := MarshalObject(info, &model.Object{CodeName: "a", Fields: map[string]string{"Email": "e", "LastLogon": "now"}}, "utf-8")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "LastLogon")
}

func TestBatchRoundTrip(t *testing.T) {
	info := &model.TypeInfo{Name: "cms.country", ByType: true}
	objs := []*model.Object{
		{CodeName: "US", Fields: map[string]string{"Name": "United States"}},
		{CodeName: "CZ", Fields: map[string]string{"Name": "Czechia"}},
	}

	data, err := MarshalBatch(info, objs, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "US", objs[0].CodeName, "input order is not modified")

	back, err := UnmarshalBatch(data)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "CZ", back[0].CodeName)
	assert.Equal(t, "cms.country", back[0].Type)

	got := map[string]map[string]string{}
	for _, o := range back {
		got[o.CodeName] = o.Fields
	}
	want := map[string]map[string]string{
		"CZ": {"Name": "Czechia"},
		"US": {"Name": "United States"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batch fields mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := UnmarshalObject([]byte("<object"))
	assert.Error(t, err)
	_, err = UnmarshalObject([]byte(`<object type="cms.user"></object>`))
	assert.Error(t, err, "code name is required")
	_, err = UnmarshalBatch([]byte(`<objects type="x"><object type="x"/></objects>`))
	assert.Error(t, err)
}

func TestWriteSkipsUnchangedContent(t *testing.T) {
	cfg := newTestConfig(t)

	changed, err := cfg.Write("cms.user/a.xml", []byte("hello\n"))
	require.NoError(t, err)
	assert.True(t, changed)

	h1, err := hashing.File(filepath.Join(cfg.Root, "cms.user", "a.xml"))
	require.NoError(t, err)

	changed, err = cfg.Write("cms.user/a.xml", []byte("hello\n"))
	require.NoError(t, err)
	assert.False(t, changed)

	h2, err := hashing.File(filepath.Join(cfg.Root, "cms.user", "a.xml"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	changed, err = cfg.Write("cms.user/a.xml", []byte("bye\n"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestWriteUsesSessionEncoding(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encoding = textenc.MustResolve("windows-1252")

	_, err := cfg.Write("cms.user/e.xml", []byte("café"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(cfg.Root, "cms.user", "e.xml"))
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, raw)

	text, err := cfg.Read("cms.user/e.xml")
	require.NoError(t, err)
	assert.Equal(t, "café", string(text))
}

func TestAbsRejectsEscapes(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := cfg.Abs("../outside.xml")
	assert.Error(t, err)
	_, err = cfg.Write("/etc/passwd", nil)
	assert.Error(t, err)
}

func TestRemoveIsIdempotentAndPrunes(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := cfg.Write("cms.role/main/editors.xml", []byte("x"))
	require.NoError(t, err)

	removed, err := cfg.Remove("cms.role/main/editors.xml")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoDirExists(t, filepath.Join(cfg.Root, "cms.role"))
	assert.DirExists(t, cfg.Root)

	removed, err = cfg.Remove("cms.role/main/editors.xml")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDiscover(t *testing.T) {
	cfg := newTestConfig(t)
	for _, rel := range []string{
		"cms.pagetemplate/root/child.xml",
		"cms.pagetemplate/root.xml",
		"cms.user/b.xml",
		"cms.user/a.xml",
		"cms.user/notes.txt",
		"unknown.type/x.xml",
		".git/config",
		"repository.config",
	} {
		path := filepath.Join(cfg.Root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("<x/>"), 0o644))
	}

	snap, err := cfg.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"cms.pagetemplate", "cms.user"}, snap.Types())
	assert.Equal(t, "cms.pagetemplate/root.xml", snap.Files["cms.pagetemplate"][0].RelPath, "parents first")
	assert.Equal(t, "cms.user/a.xml", snap.Files["cms.user"][0].RelPath)
	assert.Len(t, snap.Files["cms.user"], 2)
	assert.Len(t, snap.Warnings, 2)
	assert.True(t, snap.Has("cms.user", "cms.user/b.xml"))
}

func TestDiscoverMissingRoot(t *testing.T) {
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "missing"), nil, nil, model.NewBuiltinCatalog())
	require.NoError(t, err)
	_, err = cfg.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscoverCancelled(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := cfg.Write("cms.user/a.xml", []byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cfg.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileCachesHash(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := cfg.Write("cms.user/a.xml", []byte("one"))
	require.NoError(t, err)

	f := NewFile(cfg.Root, "cms.user/a.xml", "cms.user")
	h1, err := f.Hash()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.Path(), []byte("two"), 0o644))
	h2, err := f.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "hash is cached per snapshot")
	assert.Equal(t, hashing.Sum([]byte("one")), h1)
	assert.Equal(t, 2, f.Depth())
	assert.False(t, f.IsBatch())
}
