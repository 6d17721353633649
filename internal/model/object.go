package model

import (
	"maps"
	"sort"
	"strings"
)

// Object is one configuration object in its generic form.
type Object struct {
	Type     string
	ID       int64
	GUID     string
	CodeName string
	Site     string
	Parent   string
	Fields   map[string]string
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	c := *o
	c.Fields = maps.Clone(o.Fields)
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	return &c
}

// FieldNames returns the field names of o, sorted.
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Tracked returns a copy of o reduced to the columns tracked by info. The
// database ID is never tracked.
func (o *Object) Tracked(info *TypeInfo) *Object {
	c := o.Clone()
	c.ID = 0
	for k := range c.Fields {
		if !info.HasColumn(k) {
			delete(c.Fields, k)
		}
	}
	return c
}

// Key identifies o within its type, case-insensitively.
func (o *Object) Key() string {
	return ObjectKey(o.Site, o.CodeName)
}

// ObjectKey builds the identity used by Object.Key.
func ObjectKey(site, codeName string) string {
	return strings.ToLower(site) + "/" + strings.ToLower(codeName)
}
