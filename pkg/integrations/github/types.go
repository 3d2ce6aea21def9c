package github

import "fmt"

// PageSize is the number of search results requested per page.
const PageSize = 100

// RepositoryDescriptor is a lightweight reference to a repository, yielded
// by search before enrichment.
type RepositoryDescriptor struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns the "owner/repo" form.
func (d RepositoryDescriptor) String() string {
	return d.Owner + "/" + d.Repo
}

// Owner is the owning account of a repository.
type Owner struct {
	Login string `json:"login"`
}

// Repository is the GitHub record for one repository, as returned by
// GET /repos/{owner}/{repo}.
type Repository struct {
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Owner           Owner    `json:"owner"`
	Description     *string  `json:"description"`
	StargazersCount int      `json:"stargazers_count"`
	Topics          []string `json:"topics,omitempty"`
}

// Descriptor returns the descriptor addressing r.
func (r *Repository) Descriptor() RepositoryDescriptor {
	return RepositoryDescriptor{Owner: r.Owner.Login, Repo: r.Name}
}

// check rejects records missing the fields every caller relies on.
func (r *Repository) check() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("repository without name")
	case r.FullName == "":
		return fmt.Errorf("repository %s without full_name", r.Name)
	case r.Owner.Login == "":
		return fmt.Errorf("repository %s without owner login", r.FullName)
	}
	return nil
}

// SearchKind selects the search endpoint.
type SearchKind string

const (
	// SearchCode queries /search/code; each item is a file inside a repository.
	SearchCode SearchKind = "code"

	// SearchRepositories queries /search/repositories; each item is a repository.
	SearchRepositories SearchKind = "repositories"
)

// codeSearchResponse is the body of GET /search/code. Items is a pointer so
// a body without the field is detected as malformed.
type codeSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      *[]struct {
		Repository *struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	} `json:"items"`
}

// repoSearchResponse is the body of GET /search/repositories.
type repoSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      *[]struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}
