package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but is older
// than the cache TTL. The caller should refetch and [Cache.Set] the result.
var ErrExpired = errors.New("cache entry expired")

// Cache stores decoded API responses as JSON files, one per key.
//
// Entries live at dir/<sha256(key)>.json and are written through a temp
// file and rename, so concurrent readers (and other processes sharing the
// directory) never see a partial entry. Freshness is the file's mtime
// compared against the TTL; a TTL of 0 disables expiry.
//
// Use [Cache.Namespace] to keep keys from different endpoints apart:
//
//	repos := cache.Namespace("github:repo:")
//	repos.Set("acme/widget", repo) // key "github:repo:acme/widget"
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewCache opens a cache rooted at dir, creating it if needed. An empty dir
// selects $XDG_CACHE_HOME/pkgindex, falling back to ~/.cache/pkgindex.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		d, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// DefaultCacheDir returns the directory NewCache uses when none is given.
func DefaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pkgindex"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "pkgindex"), nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the entry lifetime. Zero means entries never expire.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get decodes the entry for key into v.
//
// It reports (true, nil) on a fresh hit, (false, nil) on a miss and
// (false, ErrExpired) for a stale entry. A corrupt entry is reported as a
// decode error and v may be partially written.
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key, replacing any previous entry and restarting its TTL.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	path := c.keyPath(c.prefix + key)
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.keyPath(c.prefix + key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Namespace returns a view of c that prefixes every key with prefix.
// Namespaces nest: c.Namespace("github:").Namespace("repo:") uses
// "github:repo:".
func (c *Cache) Namespace(prefix string) *Cache {
	ns := *c
	ns.prefix = c.prefix + prefix
	return &ns
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:])+".json")
}
