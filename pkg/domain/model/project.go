package model

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/types"
)

const (
	DefaultGitHubTokenKey       = "GITHUB_TOKEN"
	DefaultPrivateIndexTokenKey = "PACKAGE_INDEX_PRIVATE_TOKEN"
	DefaultPublicIndexTokenKey  = "PACKAGE_INDEX_PUBLIC_TOKEN"
	DefaultSlackWebhookKey      = "SLACK_WEBHOOK_URL"
	DefaultPublicIndexURL       = "https://upload.pypi.org/legacy/"
	DefaultPublicIndexUsername  = "__token__"
)

// Project is the release configuration of one repository. It is loaded once
// per run and passed explicitly to every component that needs it.
type Project struct {
	Org     string     `toml:"org"`
	Name    string     `toml:"name"`
	Package string     `toml:"package"`
	Public  bool       `toml:"public"`
	Bump    BumpPolicy `toml:"bump"`
	Python  string     `toml:"python"`

	Paths   ProjectPaths   `toml:"paths"`
	GitHub  GitHubConfig   `toml:"github"`
	Index   IndexConfig    `toml:"index"`
	Docs    DocsConfig     `toml:"docs"`
	Slack   SlackConfig    `toml:"slack"`
	Archive ArchiveConfig  `toml:"archive"`
	Publish PublishConfig  `toml:"publish"`
	Build   []ArtifactKind `toml:"build"`

	// ArtifactDir is where distributables are built. Empty selects a directory
	// under os.TempDir(); a relative path is resolved against the repository.
	ArtifactDir string `toml:"artifact_dir"`
}

// ProjectPaths are repository relative, slash separated.
type ProjectPaths struct {
	Version       string `toml:"version"`
	Manifest      string `toml:"manifest"`
	Changelog     string `toml:"changelog"`
	ChangelogLink string `toml:"changelog_link"`
}

type GitHubConfig struct {
	APIURL   string `toml:"api_url"`
	TokenKey string `toml:"token_key"`
}

type IndexConfig struct {
	Private IndexTarget `toml:"private"`
	Public  IndexTarget `toml:"public"`
}

type IndexTarget struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	TokenKey string `toml:"token_key"`
}

type DocsConfig struct {
	Enabled      bool   `toml:"enabled"`
	Remote       string `toml:"remote"`
	RemoteBranch string `toml:"remote_branch"`
}

type SlackConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookKey string `toml:"webhook_key"`
}

type ArchiveConfig struct {
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
}

type PublishConfig struct {
	Parallel bool `toml:"parallel"`
}

// SetDefaults fills every unset field with its conventional value.
func (x *Project) SetDefaults() {
	if x.Bump == "" {
		x.Bump = BumpAuto
	}
	if x.Python == "" {
		x.Python = "python3"
	}
	if x.Paths.Version == "" {
		x.Paths.Version = path.Join(x.Package, "version")
	}
	if x.Paths.Manifest == "" {
		x.Paths.Manifest = "config.yaml"
	}
	if x.Paths.Changelog == "" {
		x.Paths.Changelog = "docs/changelog/unreleased.md"
	}
	if x.Paths.ChangelogLink == "" {
		x.Paths.ChangelogLink = "CHANGELOG.md"
	}
	if x.GitHub.TokenKey == "" {
		x.GitHub.TokenKey = DefaultGitHubTokenKey
	}
	if x.Index.Private.Username == "" {
		x.Index.Private.Username = x.Org
	}
	if x.Index.Private.TokenKey == "" {
		x.Index.Private.TokenKey = DefaultPrivateIndexTokenKey
	}
	if x.Index.Public.URL == "" {
		x.Index.Public.URL = DefaultPublicIndexURL
	}
	if x.Index.Public.Username == "" {
		x.Index.Public.Username = DefaultPublicIndexUsername
	}
	if x.Index.Public.TokenKey == "" {
		x.Index.Public.TokenKey = DefaultPublicIndexTokenKey
	}
	if x.Docs.Remote == "" {
		x.Docs.Remote = "origin"
	}
	if x.Docs.RemoteBranch == "" {
		x.Docs.RemoteBranch = "docs"
	}
	if x.Slack.WebhookKey == "" {
		x.Slack.WebhookKey = DefaultSlackWebhookKey
	}
	if len(x.Build) == 0 {
		x.Build = []ArtifactKind{ArtifactWheel, ArtifactSourceDistribution}
	}
}

// Validate checks required fields. Call after SetDefaults.
func (x *Project) Validate() error {
	if x.Org == "" {
		return goerr.Wrap(types.ErrInvalidConfig, "org is required")
	}
	if x.Name == "" {
		return goerr.Wrap(types.ErrInvalidConfig, "name is required")
	}
	if x.Name == "." || x.Name == ".." || strings.ContainsAny(x.Name, `/\`) {
		return goerr.Wrap(types.ErrInvalidConfig, "name must be a single path element", goerr.V("name", x.Name))
	}
	if x.ArtifactDir != "" && !filepath.IsAbs(x.ArtifactDir) && coversRoot(x.ArtifactDir) {
		return goerr.Wrap(types.ErrInvalidConfig, "artifact_dir must not contain the repository",
			goerr.V("artifact_dir", x.ArtifactDir))
	}
	if err := x.Bump.Validate(); err != nil {
		return goerr.Wrap(types.ErrInvalidConfig, err.Error())
	}
	for _, kind := range x.Build {
		if kind != ArtifactWheel && kind != ArtifactSourceDistribution {
			return goerr.Wrap(types.ErrInvalidConfig, "unknown artifact kind", goerr.V("kind", string(kind)))
		}
	}
	if x.Index.Private.URL == "" {
		return goerr.Wrap(types.ErrInvalidConfig, "index.private.url is required")
	}
	return nil
}

// coversRoot reports whether a repository relative path is the repository
// root or one of its parents.
func coversRoot(dir string) bool {
	for _, elem := range strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/") {
		if elem != "." && elem != ".." {
			return false
		}
	}
	return true
}

// PrivateIndex returns the publish target of the private package index.
func (x *Project) PrivateIndex() PublishTarget {
	return PublishTarget{
		Name:     "private",
		URL:      x.Index.Private.URL,
		Username: x.Index.Private.Username,
		TokenKey: x.Index.Private.TokenKey,
	}
}

// PublicIndex returns the publish target of the public package index.
func (x *Project) PublicIndex() PublishTarget {
	return PublishTarget{
		Name:     "pypi",
		URL:      x.Index.Public.URL,
		Username: x.Index.Public.Username,
		TokenKey: x.Index.Public.TokenKey,
	}
}
