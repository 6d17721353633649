// Package lock keeps two restores from writing into the same object store at
// the same time.
package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// RunLock is an exclusive flock(2) on a lock file that records the holder's
// PID and run id. The lock lives as long as the file descriptor stays open.
type RunLock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path without blocking.
func Acquire(path, runID string) (*RunLock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid, run, herr := Holder(path); herr == nil {
				return nil, fmt.Errorf("%w: %s (pid %d, run %s)", ErrLocked, path, pid, run)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	l := &RunLock{path: path, f: f}
	if err := l.record(runID); err != nil {
		_ = l.Release()
		return nil, err
	}
	return l, nil
}

func (l *RunLock) record(runID string) error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(l.f, "pid=%d\nrun=%s\n", os.Getpid(), runID); err != nil {
		return fmt.Errorf("write lock holder: %w", err)
	}
	return l.f.Sync()
}

// Holder reads the PID and run id recorded in the lock file at path.
func Holder(path string) (int, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	var (
		pid   int
		runID string
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			pid, err = strconv.Atoi(value)
			if err != nil {
				return 0, "", fmt.Errorf("parse pid in %s: %w", path, err)
			}
		case "run":
			runID = value
		}
	}
	if err := sc.Err(); err != nil {
		return 0, "", err
	}
	if pid == 0 {
		return 0, "", fmt.Errorf("no holder recorded in %s", path)
	}
	return pid, runID, nil
}

func (l *RunLock) Path() string { return l.path }

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
