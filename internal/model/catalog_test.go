package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRegister(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(TypeInfo{Name: "CMS.User", ContinuousIntegration: true}))

	got, ok := c.Get("cms.user")
	require.True(t, ok)
	assert.Equal(t, "cms.user", got.Name)

	assert.Error(t, c.Register(TypeInfo{Name: "cms.USER"}), "duplicate names are rejected")
	assert.Error(t, c.Register(TypeInfo{Name: "  "}), "empty names are rejected")
}

func TestCatalogSupported(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(TypeInfo{Name: "b", ContinuousIntegration: true}))
	require.NoError(t, c.Register(TypeInfo{Name: "a", ContinuousIntegration: true}))
	require.NoError(t, c.Register(TypeInfo{Name: "c"}))

	var names []string
	for _, ti := range c.Supported() {
		names = append(names, ti.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDependsOn(t *testing.T) {
	info := TypeInfo{
		Name:         "cms.pagetemplate",
		ParentType:   "cms.pagetemplate",
		Dependencies: []string{"CMS.Site", "cms.site", ""},
	}
	assert.Equal(t, []string{"cms.site"}, info.DependsOn())

	child := TypeInfo{Name: "cms.userrole", ParentType: "cms.user", Dependencies: []string{"cms.role"}}
	assert.Equal(t, []string{"cms.user", "cms.role"}, child.DependsOn())
}

func TestTracked(t *testing.T) {
	info := &TypeInfo{Name: "cms.user", Columns: []string{"Email"}}
	obj := &Object{Type: "cms.user", ID: 7, CodeName: "admin", Fields: map[string]string{
		"Email":     "a@b.c",
		"LastLogon": "2024-01-01",
	}}

	tracked := obj.Tracked(info)
	assert.Equal(t, int64(0), tracked.ID)
	assert.Equal(t, map[string]string{"Email": "a@b.c"}, tracked.Fields)
	assert.Len(t, obj.Fields, 2, "original is not modified")
}

func TestBuiltinCatalog(t *testing.T) {
	c := NewBuiltinCatalog()
	secrets, ok := c.Get(SecretsType)
	require.True(t, ok)
	assert.True(t, secrets.ContinuousIntegration)

	alias, ok := c.Get("cms.newsletteremailtemplate")
	require.True(t, ok)
	assert.Equal(t, "cms.emailtemplate", alias.OriginalType)
}
