package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/types"
)

type client struct {
	githubClient *github.Client
}

type config struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the GitHub client
type Option func(*config)

// WithBaseURL points the client at a GitHub Enterprise or test API root
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new GitHub client authenticated with a bearer token
func NewClient(token types.Secret, opts ...Option) (interfaces.GitHubClient, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	githubClient := github.NewClient(cfg.httpClient).WithAuthToken(token.Unsafe())

	if cfg.baseURL != "" {
		base := cfg.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse GitHub API URL", goerr.V("url", cfg.baseURL))
		}
		githubClient.BaseURL = u
	}

	return &client{
		githubClient: githubClient,
	}, nil
}

// CreateRelease creates a release for an existing tag
func (c *client) CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	created, _, err := c.githubClient.Repositories.CreateRelease(ctx, owner, repo, release)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create release",
			goerr.V("owner", owner),
			goerr.V("repo", repo),
			goerr.V("tag", release.GetTagName()))
	}

	return created, nil
}

// ListReleaseTags returns the tag names of all releases, newest first
func (c *client) ListReleaseTags(ctx context.Context, owner, repo string) ([]string, error) {
	var tags []string
	opt := &github.ListOptions{PerPage: 100}

	for {
		releases, resp, err := c.githubClient.Repositories.ListReleases(ctx, owner, repo, opt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list releases",
				goerr.V("owner", owner),
				goerr.V("repo", repo))
		}

		for _, r := range releases {
			tags = append(tags, r.GetTagName())
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return tags, nil
}
