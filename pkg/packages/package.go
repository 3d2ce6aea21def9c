package packages

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Source identifies the code host that produced a package.
type Source string

// Known package sources.
const (
	SourceGitHub Source = "github"
)

// Sources lists every source the system can ingest.
func Sources() []Source {
	return []Source{SourceGitHub}
}

// ParseSource validates s and returns it as a Source.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Sources(), src) {
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// String returns the source name.
func (s Source) String() string { return string(s) }

var (
	// ErrUnknownSource is returned for source names no fetcher produces.
	ErrUnknownSource = errors.New("unknown source")

	// ErrInvalidKey is returned when a store key does not have the form source:identifier.
	ErrInvalidKey = errors.New("invalid package key")
)

// Package is the canonical, source-scoped record for one discovered artifact.
// Once emitted by a fetcher it is never mutated; storage overwrites any prior
// record sharing the same key.
type Package struct {
	Source      Source    `json:"source" bson:"source"`
	Identifier  string    `json:"identifier" bson:"identifier"`
	Name        string    `json:"name" bson:"name"`
	Description *string   `json:"description" bson:"description,omitempty"`
	Popularity  int       `json:"popularity" bson:"popularity"`
	Tags        []string  `json:"tags" bson:"tags"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero" bson:"updated_at,omitempty"`
}

// Key returns the store key of the package.
func (p Package) Key() string {
	return Key(p.Source, p.Identifier)
}

// Validate reports whether the package can be stored.
func (p Package) Validate() error {
	if p.Source == "" {
		return errors.New("package source is required")
	}
	if p.Identifier == "" {
		return errors.New("package identifier is required")
	}
	if p.Name == "" {
		return fmt.Errorf("package %s: name is required", p.Key())
	}
	return nil
}

// Key joins source and identifier into the store key "source:identifier".
func Key(source Source, identifier string) string {
	return string(source) + ":" + identifier
}

// ParseKey splits a store key produced by [Key].
func ParseKey(key string) (Source, string, error) {
	src, id, ok := strings.Cut(key, ":")
	if !ok || src == "" || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return Source(src), id, nil
}

// JoinIdentifier builds the "owner/repo" identifier used by repository hosts.
func JoinIdentifier(owner, repo string) string {
	return owner + "/" + repo
}

// SplitIdentifier is the inverse of [JoinIdentifier].
func SplitIdentifier(identifier string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(identifier, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}

// Matches reports whether query occurs, case-insensitively, in the package's
// identifier, name, description or one of its tags. An empty query matches.
func (p Package) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Identifier), q) || strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	if p.Description != nil && strings.Contains(strings.ToLower(*p.Description), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// SortByPopularity orders pkgs by popularity (highest first), breaking ties by key.
func SortByPopularity(pkgs []Package) {
	slices.SortStableFunc(pkgs, func(a, b Package) int {
		if a.Popularity != b.Popularity {
			return b.Popularity - a.Popularity
		}
		return strings.Compare(a.Key(), b.Key())
	})
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
