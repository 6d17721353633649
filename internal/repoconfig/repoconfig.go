// Package repoconfig holds the repository configuration: which object types
// are tracked in the repository and which individual objects are left out.
package repoconfig

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/model"
)

// FileName is the name of the configuration file at the repository root.
const FileName = "repository.config"

// Wildcard marks a prefix or suffix pattern.
const Wildcard = "%"

// ConfigError reports a repository configuration that cannot be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid repository configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid repository configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the parsed repository configuration. It is read-only once loaded.
type Config struct {
	included        map[string]struct{}
	excluded        map[string]struct{}
	defaultExcluded map[string]struct{}
	patterns        map[string][]string
}

// Default returns the configuration used when no file exists: every supported
// type is included except the secrets type.
func Default() *Config {
	return &Config{
		included:        map[string]struct{}{},
		excluded:        map[string]struct{}{},
		defaultExcluded: map[string]struct{}{model.SecretsType: {}},
		patterns:        map[string][]string{},
	}
}

// New builds a configuration from explicit lists. A nil excluded slice keeps
// the default exclusions; a non-nil one replaces them.
func New(included, excluded []string, patterns map[string][]string) *Config {
	c := Default()
	for _, t := range included {
		if k := model.NormalizeType(t); k != "" {
			c.included[k] = struct{}{}
		}
	}
	if excluded != nil {
		c.defaultExcluded = map[string]struct{}{}
		for _, t := range excluded {
			if k := model.NormalizeType(t); k != "" {
				c.excluded[k] = struct{}{}
			}
		}
	}
	for t, list := range patterns {
		c.addPatterns(t, list)
	}
	return c
}

func (c *Config) addPatterns(objectType string, list []string) {
	k := model.NormalizeType(objectType)
	if k == "" {
		return
	}
	for _, p := range list {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		c.patterns[k] = append(c.patterns[k], strings.ToLower(p))
	}
}

// IsTypeIncluded reports whether objects of objectType belong in the repository.
// Explicit exclusion always wins over inclusion. Default exclusions are lifted
// only by listing the type explicitly as included.
func (c *Config) IsTypeIncluded(objectType string) bool {
	k := model.NormalizeType(objectType)
	if _, ok := c.excluded[k]; ok {
		return false
	}
	_, explicit := c.included[k]
	if len(c.included) > 0 && !explicit {
		return false
	}
	if _, ok := c.defaultExcluded[k]; ok && !explicit {
		return false
	}
	return true
}

// IsObjectExcluded reports whether codeName matches one of the excluded
// patterns configured for objectType.
func (c *Config) IsObjectExcluded(objectType, codeName string) bool {
	list := c.patterns[model.NormalizeType(objectType)]
	if len(list) == 0 {
		return false
	}
	name := strings.ToLower(codeName)
	for _, p := range list {
		if matchPattern(p, name) {
			return true
		}
	}
	return false
}

// matchPattern expects both arguments lower-cased.
func matchPattern(pattern, name string) bool {
	prefix := strings.HasSuffix(pattern, Wildcard)
	suffix := strings.HasPrefix(pattern, Wildcard)
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, Wildcard), Wildcard)

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case prefix:
		return strings.HasPrefix(name, core)
	case suffix:
		return strings.HasSuffix(name, core)
	default:
		return name == pattern
	}
}

// UnknownTypes returns the types named by the configuration that the catalog
// does not know, sorted.
func (c *Config) UnknownTypes(catalog *model.Catalog) []string {
	seen := map[string]struct{}{}
	collect := func(k string) {
		if _, ok := catalog.Get(k); !ok {
			seen[k] = struct{}{}
		}
	}
	for k := range c.included {
		collect(k)
	}
	for k := range c.excluded {
		collect(k)
	}
	for k := range c.patterns {
		collect(k)
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type document struct {
	XMLName  xml.Name    `xml:"RepositoryConfiguration"`
	Included *typeList   `xml:"IncludedObjectTypes"`
	Excluded *typeList   `xml:"ExcludedObjectTypes"`
	Filters  *filterList `xml:"ObjectFilters"`
}

type typeList struct {
	Types []string `xml:"ObjectType"`
}

type filterList struct {
	CodeNames []codeNameFilter `xml:"ExcludedCodeNames"`
}

type codeNameFilter struct {
	ObjectType string `xml:"ObjectType,attr"`
	Value      string `xml:",chardata"`
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parse xml: %w", err)}
	}

	var included, excluded []string
	if doc.Included != nil {
		included = doc.Included.Types
	}
	if doc.Excluded != nil {
		excluded = append([]string{}, doc.Excluded.Types...)
	}

	patterns := map[string][]string{}
	if doc.Filters != nil {
		for _, f := range doc.Filters.CodeNames {
			if strings.TrimSpace(f.ObjectType) == "" {
				return nil, &ConfigError{Err: fmt.Errorf("ExcludedCodeNames without ObjectType attribute")}
			}
			patterns[f.ObjectType] = append(patterns[f.ObjectType], strings.Split(f.Value, ";")...)
		}
	}

	return New(included, excluded, patterns), nil
}
