package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestCompareIdenticalTrees(t *testing.T) {
	files := map[string]string{
		"cms.user/admin.xml":       "<object/>\n",
		"cms.country/@objects.xml": "<objects/>\n",
		"empty.xml":                "",
	}
	a := writeTree(t, files)
	b := writeTree(t, files)

	issues, err := Compare(a, b)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = Compare(a, a)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCompareExtraAndMissing(t *testing.T) {
	original := writeTree(t, map[string]string{"a.xml": "same", "b.xml": "only original"})
	updated := writeTree(t, map[string]string{"a.xml": "same", "c.xml": "only new"})

	issues, err := Compare(original, updated)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	byPath := map[string]Issue{}
	for _, i := range issues {
		byPath[i.Path] = i
	}
	assert.Equal(t, KindExtra, byPath["c.xml"].Kind)
	assert.Equal(t, KindMissing, byPath["b.xml"].Kind)
	assert.NotContains(t, byPath, "a.xml")
}

func TestCompareLocatesDifference(t *testing.T) {
	original := writeTree(t, map[string]string{"cms.user/admin.xml": "abc\ndef\n"})
	updated := writeTree(t, map[string]string{"cms.user/admin.xml": "abc\ndxf\n"})

	issues, err := Compare(original, updated)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	got := issues[0]
	assert.Equal(t, "cms.user/admin.xml", got.Path)
	assert.Equal(t, KindContent, got.Kind)
	assert.Equal(t, 2, got.Line)
	assert.Equal(t, 2, got.Column)
	assert.Equal(t, "def", got.Original)
	assert.Equal(t, "dxf", got.New)
	assert.Equal(t, "-^", got.Marker())
	assert.Contains(t, got.Message, "line 2, column 2")
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		original string
		updated  string
		kind     Kind
		line     int
		column   int
	}{
		{"first line", "abc", "xbc", KindContent, 1, 1},
		{"longer line", "abc\nde", "abc\ndef", KindContent, 2, 3},
		{"empty against text", "", "a", KindContent, 1, 1},
		{"multibyte", "žluťoučký", "žluťoucký", KindContent, 1, 7},
		{"extra trailing line", "abc\n", "abc\n\n", KindEncoding, 0, 0},
		{"line endings", "abc\ndef\n", "abc\r\ndef\r\n", KindEncoding, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff("f.xml", []byte(tt.original), []byte(tt.updated))
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.line, got.Line)
			assert.Equal(t, tt.column, got.Column)
		})
	}
}

func TestDiffSameTextDifferentEncoding(t *testing.T) {
	utf8 := []byte("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<name>Ž</name>\n")
	// Same document written as windows-1250, declared accordingly.
	cp1250 := append([]byte("<?xml version=\"1.0\" encoding=\"windows-1250\"?>\n<name>"), 0x8e)
	cp1250 = append(cp1250, []byte("</name>\n")...)

	got := Diff("f.xml", utf8, cp1250)
	assert.Equal(t, KindContent, got.Kind, "the declarations differ")
	assert.Equal(t, 1, got.Line)

	bom := append([]byte("\xef\xbb\xbf"), utf8...)
	got = Diff("f.xml", utf8, bom)
	assert.Equal(t, KindEncoding, got.Kind)
}

func TestCompareMissingRoot(t *testing.T) {
	root := writeTree(t, nil)
	_, err := Compare(filepath.Join(root, "absent"), root)
	assert.Error(t, err)
	_, err = Compare(root, filepath.Join(root, "absent"))
	assert.Error(t, err)
}

func TestCompareSkipsDotEntries(t *testing.T) {
	a := writeTree(t, map[string]string{"a.xml": "x", ".git/HEAD": "ref: main"})
	b := writeTree(t, map[string]string{"a.xml": "x"})

	issues, err := Compare(a, b)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCompareMissingSorted(t *testing.T) {
	a := writeTree(t, map[string]string{"z.xml": "1", "m/a.xml": "2", "b.xml": "3"})
	b := writeTree(t, nil)

	issues, err := Compare(a, b)
	require.NoError(t, err)
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Equal(t, []string{"b.xml", "m/a.xml", "z.xml"}, paths)
}
