package repository

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/hashing"
)

// File is one object file in a repository snapshot. Content and hash are
// loaded on first use and cached.
type File struct {
	RelPath string
	Type    string

	root    string
	content []byte
	loaded  bool
	digest  *hashing.Digest
}

// NewFile returns a File for rel below root.
func NewFile(root, rel, objectType string) *File {
	return &File{RelPath: rel, Type: objectType, root: root}
}

// Path returns the absolute path of f.
func (f *File) Path() string {
	return filepath.Join(f.root, filepath.FromSlash(f.RelPath))
}

// Content returns the raw bytes of f.
func (f *File) Content() ([]byte, error) {
	if f.loaded {
		return f.content, nil
	}
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return nil, err
	}
	f.content, f.loaded = data, true
	return data, nil
}

// Hash returns the content digest of f.
func (f *File) Hash() (hashing.Digest, error) {
	if f.digest != nil {
		return *f.digest, nil
	}
	data, err := f.Content()
	if err != nil {
		return hashing.Digest{}, err
	}
	d := hashing.Sum(data)
	f.digest = &d
	return d, nil
}

// Depth is the number of path segments of f.
func (f *File) Depth() int {
	return strings.Count(f.RelPath, "/") + 1
}

// IsBatch reports whether f is a by-type batch file.
func (f *File) IsBatch() bool {
	return strings.HasSuffix(f.RelPath, "/"+BatchFileName)
}
