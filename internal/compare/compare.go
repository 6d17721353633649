// Package compare checks two repository trees for equality and locates the
// first differing character of every file that changed.
package compare

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/hashing"
	"github.com/pateepk/agilesite-ci/internal/textenc"
)

// Kind classifies an Issue.
type Kind string

const (
	KindMissing  Kind = "missing"
	KindExtra    Kind = "extra"
	KindContent  Kind = "content"
	KindEncoding Kind = "encoding"
)

// Issue is one difference between the trees. Line and Column are 1-based and
// only set for content issues.
type Issue struct {
	Path     string
	Kind     Kind
	Line     int
	Column   int
	Original string
	New      string
	Message  string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Marker returns the dash and caret string pointing at Column.
func (i Issue) Marker() string {
	if i.Column < 1 {
		return ""
	}
	return strings.Repeat("-", i.Column-1) + "^"
}

// Compare reports every file that is missing from, extra in, or different in
// newRoot relative to originalRoot. Identical trees yield no issues.
func Compare(originalRoot, newRoot string) ([]Issue, error) {
	original := map[string]hashing.Digest{}
	err := walk(originalRoot, func(rel, path string) error {
		d, err := hashing.File(path)
		if err != nil {
			return err
		}
		original[rel] = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan original tree: %w", err)
	}

	var issues []Issue
	seen := map[string]struct{}{}
	err = walk(newRoot, func(rel, path string) error {
		want, ok := original[rel]
		if !ok {
			issues = append(issues, Issue{Path: rel, Kind: KindExtra, Message: "extra file, not present in the original tree"})
			return nil
		}
		seen[rel] = struct{}{}

		got, err := hashing.File(path)
		if err != nil {
			return err
		}
		if got == want {
			return nil
		}

		a, err := os.ReadFile(filepath.Join(originalRoot, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		issues = append(issues, Diff(rel, a, b))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan new tree: %w", err)
	}

	var missing []string
	for rel := range original {
		if _, ok := seen[rel]; !ok {
			missing = append(missing, rel)
		}
	}
	sort.Strings(missing)
	for _, rel := range missing {
		issues = append(issues, Issue{Path: rel, Kind: KindMissing, Message: "missing file, present in the original tree only"})
	}
	return issues, nil
}

// Diff locates the first difference between two versions of the file at rel.
func Diff(rel string, original, updated []byte) Issue {
	a := lines(decode(original))
	b := lines(decode(updated))

	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			continue
		}
		col := firstDiff([]rune(a[i]), []rune(b[i]))
		issue := Issue{
			Path:     rel,
			Kind:     KindContent,
			Line:     i + 1,
			Column:   col,
			Original: a[i],
			New:      b[i],
		}
		issue.Message = fmt.Sprintf("content differs at line %d, column %d\n  original: %s\n  new:      %s\n            %s",
			issue.Line, issue.Column, issue.Original, issue.New, issue.Marker())
		return issue
	}
	return Issue{Path: rel, Kind: KindEncoding, Message: "same text, different encoding or line count"}
}

func firstDiff(a, b []rune) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i + 1
		}
	}
	return n + 1
}

// lines splits text into lines without terminators. Empty text is one empty
// line.
func lines(text string) []string {
	out := strings.Split(text, "\n")
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}

var declaredEncoding = regexp.MustCompile(`^<\?xml[^>]*encoding=["']([^"']+)["']`)

// decode converts data to UTF-8 using the encoding declared by an XML prolog.
// Undeclared or unknown encodings are read as UTF-8.
func decode(data []byte) string {
	name := textenc.DefaultName
	head := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if m := declaredEncoding.FindSubmatch(head); m != nil {
		name = string(m[1])
	}
	p, err := textenc.Resolve(name)
	if err != nil {
		return string(data)
	}
	text, err := p.Decode(data)
	if err != nil {
		return string(data)
	}
	return string(text)
}

// walk calls fn for every regular file below root with its slash-separated
// relative path, in lexical order. Dot entries are skipped.
func walk(root string, fn func(rel, path string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), path)
	})
}
