package repository

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/model"
)

// Snapshot is the set of object files found under a repository root.
type Snapshot struct {
	// Files maps normalized type names to their files, parents before children.
	Files    map[string][]*File
	Warnings []string
}

// Types returns the type names present in s, sorted.
func (s *Snapshot) Types() []string {
	out := make([]string, 0, len(s.Files))
	for t := range s.Files {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Has reports whether rel is part of s.
func (s *Snapshot) Has(objectType, rel string) bool {
	for _, f := range s.Files[objectType] {
		if f.RelPath == rel {
			return true
		}
	}
	return false
}

// Discover walks the repository root and groups object files by type.
// Directories of unknown types are reported as warnings and skipped.
func (c *Config) Discover(ctx context.Context) (*Snapshot, error) {
	info, err := os.Stat(c.Root)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root is not a directory: %s", c.Root)
	}

	snap := &Snapshot{Files: map[string][]*File{}}
	err = filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == c.Root {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(c.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		top, _, nested := strings.Cut(rel, "/")

		if !nested {
			if d.IsDir() {
				if _, ok := c.typeForDir(top); !ok {
					snap.Warnings = append(snap.Warnings, fmt.Sprintf("directory %q does not match any known object type, skipped", top))
					return filepath.SkipDir
				}
			}
			// Root-level files such as repository.config are not objects.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(name, Ext) {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("file %q is not an object file, skipped", rel))
			return nil
		}

		t, _ := c.typeForDir(top)
		snap.Files[t.Name] = append(snap.Files[t.Name], NewFile(c.Root, rel, t.Name))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover repository: %w", err)
	}

	for _, files := range snap.Files {
		sort.SliceStable(files, func(i, j int) bool {
			if files[i].Depth() != files[j].Depth() {
				return files[i].Depth() < files[j].Depth()
			}
			return files[i].RelPath < files[j].RelPath
		})
	}
	return snap, nil
}

func (c *Config) typeForDir(dir string) (*model.TypeInfo, bool) {
	if t, ok := c.Catalog.Get(dir); ok && TypeDir(t) == dir {
		return t, true
	}
	for _, name := range c.Catalog.Names() {
		t, _ := c.Catalog.Get(name)
		if TypeDir(t) == dir {
			return t, true
		}
	}
	return nil, false
}
