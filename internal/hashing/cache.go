package hashing

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of paths a Cache remembers.
const DefaultCacheSize = 4096

type stamp struct {
	size    int64
	modTime time.Time
	digest  Digest
}

// Cache remembers file digests keyed by path. An entry is reused only while
// the file keeps the size and modification time it had when hashed. A nil
// Cache hashes every call.
type Cache struct {
	entries *lru.Cache[string, stamp]
}

// NewCache creates a Cache holding at most size paths.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, stamp](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// File returns the digest of the file at path, hashing it only when the
// cached entry is missing or stale.
func (c *Cache) File(path string) (Digest, error) {
	if c == nil {
		return File(path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return Digest{}, err
	}
	if s, ok := c.entries.Get(path); ok && s.size == fi.Size() && s.modTime.Equal(fi.ModTime()) {
		return s.digest, nil
	}
	d, err := File(path)
	if err != nil {
		return Digest{}, err
	}
	c.entries.Add(path, stamp{size: fi.Size(), modTime: fi.ModTime(), digest: d})
	return d, nil
}

// Put records d as the digest of the file just written at path.
func (c *Cache) Put(path string, d Digest) {
	if c == nil {
		return
	}
	fi, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return
	}
	c.entries.Add(path, stamp{size: fi.Size(), modTime: fi.ModTime(), digest: d})
}

// Forget drops the entry for path.
func (c *Cache) Forget(path string) {
	if c == nil {
		return
	}
	c.entries.Remove(path)
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
