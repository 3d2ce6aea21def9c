package store

import (
	"context"
	"sync"

	"github.com/matzehuels/pkgindex/pkg/packages"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	pkgs map[string]packages.Package
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{pkgs: make(map[string]packages.Package)}
}

// Upsert implements Store.
func (m *Memory) Upsert(_ context.Context, p packages.Package) error {
	if err := validate(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pkgs[p.Key()] = p
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, source packages.Source, identifier string) (packages.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pkgs[packages.Key(source, identifier)]
	if !ok {
		return packages.Package{}, ErrNotFound
	}
	return p, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, opts ListOptions) (ListResult, error) {
	m.mu.RLock()
	all := make([]packages.Package, 0, len(m.pkgs))
	for _, p := range m.pkgs {
		all = append(all, p)
	}
	m.mu.RUnlock()
	return selectPackages(all, opts), nil
}

// Len returns the number of stored packages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pkgs)
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
