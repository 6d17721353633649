package model

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog holds every registered object type.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*TypeInfo
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*TypeInfo)}
}

// Register adds a type. Empty and duplicate names are rejected.
func (c *Catalog) Register(info TypeInfo) error {
	key := NormalizeType(info.Name)
	if key == "" {
		return fmt.Errorf("object type name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.types[key]; exists {
		return fmt.Errorf("object type %q already registered", info.Name)
	}

	stored := info
	stored.Name = key
	stored.Dependencies = append([]string(nil), info.Dependencies...)
	stored.Columns = append([]string(nil), info.Columns...)
	c.types[key] = &stored
	return nil
}

// Get retrieves a type by name, case-insensitively.
func (c *Catalog) Get(name string) (*TypeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[NormalizeType(name)]
	return t, ok
}

// Names returns all registered type names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.types))
	for k := range c.types {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Supported returns the types with continuous integration enabled, sorted by name.
func (c *Catalog) Supported() []*TypeInfo {
	var out []*TypeInfo
	for _, name := range c.Names() {
		t, _ := c.Get(name)
		if t.ContinuousIntegration {
			out = append(out, t)
		}
	}
	return out
}
