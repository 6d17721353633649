package model

import "strings"

// SecretsType stores environment secrets. It is excluded from the repository
// unless re-included explicitly.
const SecretsType = "cms.environmentsecret"

// TypeInfo describes one object type.
type TypeInfo struct {
	Name           string
	IDColumn       string
	CodeNameColumn string
	GUIDColumn     string

	// ParentType names the type whose objects own objects of this type.
	// It may equal Name for hierarchical types.
	ParentType string

	// Dependencies lists types whose objects must exist before objects of this
	// type can be restored.
	Dependencies []string

	SiteScoped bool

	// ContinuousIntegration enables repository processing for the type.
	ContinuousIntegration bool

	// OriginalType is the type this one is an alias of. Job lookups fall back
	// to it.
	OriginalType string

	// ByType types have no natural single-object file and are stored as one
	// batch file per type.
	ByType bool

	// Optimize groups by-type writes into a single rewrite per batch.
	Optimize bool

	Searchable bool

	Columns []string
}

// Key returns the normalized lookup key for the type name.
func (t *TypeInfo) Key() string {
	return NormalizeType(t.Name)
}

// DependsOn returns the normalized names of every type this type requires,
// parent first. A self-reference is not a dependency.
func (t *TypeInfo) DependsOn() []string {
	self := t.Key()
	seen := map[string]struct{}{self: {}}

	var out []string
	add := func(name string) {
		k := NormalizeType(name)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	add(t.ParentType)
	for _, d := range t.Dependencies {
		add(d)
	}
	return out
}

// HasColumn reports whether column is tracked by the type. Types without a
// column list track every column.
func (t *TypeInfo) HasColumn(column string) bool {
	if len(t.Columns) == 0 {
		return true
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// NormalizeType lower-cases and trims a type name.
func NormalizeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
