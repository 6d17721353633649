package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/hashing"
	"github.com/pateepk/agilesite-ci/internal/model"
	"github.com/pateepk/agilesite-ci/internal/repoconfig"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

// Config holds the settings for one session against a repository root.
type Config struct {
	Root     string
	Encoding *textenc.Policy
	Rules    *repoconfig.Config
	Catalog  *model.Catalog

	hashes *hashing.Cache
}

// NewConfig validates and assembles a session configuration. A nil encoding
// uses the process-wide policy and nil rules use the defaults.
func NewConfig(root string, enc *textenc.Policy, rules *repoconfig.Config, catalog *model.Catalog) (*Config, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("repository root is empty")
	}
	if catalog == nil {
		return nil, fmt.Errorf("object type catalog is nil")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root %q: %w", root, err)
	}
	if enc == nil {
		enc = textenc.Current()
	}
	if rules == nil {
		rules = repoconfig.Default()
	}
	hashes, err := hashing.NewCache(hashing.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create hash cache: %w", err)
	}
	return &Config{Root: abs, Encoding: enc, Rules: rules, Catalog: catalog, hashes: hashes}, nil
}

// WithRoot returns a copy of c pointing at a different root.
func (c *Config) WithRoot(root string) (*Config, error) {
	return NewConfig(root, c.Encoding, c.Rules, c.Catalog)
}

// Abs resolves a slash-separated relative path below the root.
func (c *Config) Abs(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("path %q escapes the repository root", rel)
	}
	return filepath.Join(c.Root, local), nil
}

// Marshal serializes obj for the session encoding.
func (c *Config) Marshal(info *model.TypeInfo, obj *model.Object) ([]byte, error) {
	return MarshalObject(info, obj, c.Encoding.Name())
}

// MarshalBatch serializes a by-type batch for the session encoding.
func (c *Config) MarshalBatch(info *model.TypeInfo, objs []*model.Object) ([]byte, error) {
	return MarshalBatch(info, objs, c.Encoding.Name())
}

// Write stores UTF-8 text at rel in the session encoding. A file whose content
// hash already matches is left untouched and Write reports false.
func (c *Config) Write(rel string, text []byte) (bool, error) {
	abs, err := c.Abs(rel)
	if err != nil {
		return false, err
	}
	data, err := c.Encoding.Encode(text)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", rel, err)
	}

	sum := hashing.Sum(data)
	existing, err := c.hashes.File(abs)
	if err == nil && existing == sum {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("hash existing %s: %w", rel, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return false, fmt.Errorf("create temp file for %s: %w", rel, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("close %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("replace %s: %w", rel, err)
	}
	c.hashes.Put(abs, sum)
	return true, nil
}

// Read returns the content at rel converted to UTF-8.
func (c *Config) Read(rel string) ([]byte, error) {
	abs, err := c.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

// Decode converts raw file content to UTF-8.
func (c *Config) Decode(data []byte) ([]byte, error) {
	return c.Encoding.Decode(data)
}

// Remove deletes rel and any directories left empty below the root. Removing
// a missing file is not an error. It reports whether a file was removed.
func (c *Config) Remove(rel string) (bool, error) {
	abs, err := c.Abs(rel)
	if err != nil {
		return false, err
	}
	c.hashes.Forget(abs)
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", rel, err)
	}

	for dir := filepath.Dir(abs); dir != c.Root && strings.HasPrefix(dir, c.Root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return true, nil
}

// Exists reports whether rel exists.
func (c *Config) Exists(rel string) bool {
	abs, err := c.Abs(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// RulesPath returns the location of the repository configuration file.
func (c *Config) RulesPath() string {
	return filepath.Join(c.Root, repoconfig.FileName)
}
