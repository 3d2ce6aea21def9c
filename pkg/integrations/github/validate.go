package github

import (
	"errors"
	"regexp"
	"strings"
)

// Regex patterns for GitHub resource validation.
var (
	// GitHub usernames/orgs: 1-39 alphanumeric or hyphen, not starting with hyphen
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// GitHub repo names: 1-100 alphanumeric, hyphen, underscore, or dot
	validRepo = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateOwner validates a GitHub username or organization name.
func ValidateOwner(owner string) error {
	if owner == "" {
		return errors.New("owner is required")
	}
	if !validOwner.MatchString(owner) {
		return errors.New("invalid owner format: must be 1-39 alphanumeric characters or hyphens, cannot start with hyphen")
	}
	return nil
}

// ValidateRepo validates a GitHub repository name.
func ValidateRepo(repo string) error {
	if repo == "" {
		return errors.New("repo is required")
	}
	if repo == "." || repo == ".." || !validRepo.MatchString(repo) {
		return errors.New("invalid repo format: must be 1-100 alphanumeric characters, hyphens, underscores, or dots")
	}
	return nil
}

// Validate checks both parts of the descriptor. A descriptor that fails
// validation cannot name an existing repository.
func (d RepositoryDescriptor) Validate() error {
	if err := ValidateOwner(d.Owner); err != nil {
		return err
	}
	return ValidateRepo(d.Repo)
}

// ParseDescriptor parses an "owner/repo" string and validates both parts.
func ParseDescriptor(ref string) (RepositoryDescriptor, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(ref), "/")
	if !ok {
		return RepositoryDescriptor{}, errors.New("invalid repo format: use owner/repo")
	}
	d := RepositoryDescriptor{Owner: owner, Repo: repo}
	if err := d.Validate(); err != nil {
		return RepositoryDescriptor{}, err
	}
	return d, nil
}
