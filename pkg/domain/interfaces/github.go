package interfaces

import (
	"context"

	"github.com/google/go-github/v75/github"
)

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// CreateRelease creates a release for an existing tag
	CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error)

	// ListReleaseTags returns tag names of published releases, newest first
	ListReleaseTags(ctx context.Context, owner, repo string) ([]string, error)
}
