package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// File stores one JSON document per package in a directory.
// Documents are spread over subdirectories by key hash to avoid too many
// files in one directory. Writes go through a temp file and rename, so a
// reader never sees a partial document.
type File struct {
	dir string
}

// NewFile creates a file store in dir. The directory will be created if it
// doesn't exist.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the store directory.
func (f *File) Dir() string { return f.dir }

// Upsert implements Store.
func (f *File) Upsert(_ context.Context, p packages.Package) error {
	if err := validate(p); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	path := f.path(p.Key())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
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
	return os.Rename(tmp.Name(), path)
}

// Get implements Store.
func (f *File) Get(_ context.Context, source packages.Source, identifier string) (packages.Package, error) {
	data, err := os.ReadFile(f.path(packages.Key(source, identifier)))
	if errors.Is(err, fs.ErrNotExist) {
		return packages.Package{}, ErrNotFound
	}
	if err != nil {
		return packages.Package{}, err
	}
	var p packages.Package
	if err := json.Unmarshal(data, &p); err != nil {
		return packages.Package{}, fmt.Errorf("file store: decode %s: %w", packages.Key(source, identifier), err)
	}
	return p, nil
}

// List implements Store. It scans the whole directory.
func (f *File) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	var all []packages.Package
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var p packages.Package
		if json.Unmarshal(data, &p) != nil {
			// Foreign or corrupt file - skip
			return nil
		}
		all = append(all, p)
		return nil
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("file store: %w", err)
	}
	return selectPackages(all, opts), nil
}

// Ping implements Store.
func (f *File) Ping(context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

// Close does nothing for the file store.
func (f *File) Close() error { return nil }

// path converts a key to a file path.
// Uses the first 2 hex chars of the key hash as subdirectory.
func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(f.dir, hash[:2], hash[2:]+".json")
}

var _ Store = (*File)(nil)
