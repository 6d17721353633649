package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNetworkFilesystem is returned for database paths on a network share,
// where SQLite and flock(2) locking cannot be relied on.
var ErrNetworkFilesystem = errors.New("network filesystem")

var errDetectionUnsupported = errors.New("filesystem detection is unsupported on this platform")

var networkFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// RequireLocal fails with ErrNetworkFilesystem when path, or its closest
// existing ancestor, is on a network filesystem. Platforms without detection
// always pass.
func RequireLocal(path string) error {
	return requireLocal(path, filesystemType)
}

func requireLocal(path string, fsType func(string) (string, error)) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	existing, err := closestExisting(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	kind, err := fsType(existing)
	if errors.Is(err, errDetectionUnsupported) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("detect filesystem of %q: %w", existing, err)
	}
	if _, remote := networkFilesystems[strings.ToLower(strings.TrimSpace(kind))]; remote {
		return fmt.Errorf("%w: %s is on %s; keep state.path on a local disk", ErrNetworkFilesystem, path, kind)
	}
	return nil
}

func closestExisting(path string) (string, error) {
	candidate, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing ancestor")
		}
		candidate = parent
	}
}
