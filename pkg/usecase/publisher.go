package usecase

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// GitHubClientFactory builds a GitHub client once the token is known
type GitHubClientFactory func(token types.Secret) (interfaces.GitHubClient, error)

type githubReleasePublisher struct {
	tokenKey    string
	credentials interfaces.CredentialStore
	newClient   GitHubClientFactory
}

// NewGitHubReleasePublisher creates a release for the tag on GitHub
func NewGitHubReleasePublisher(project *model.Project, credentials interfaces.CredentialStore, newClient GitHubClientFactory) interfaces.Publisher {
	return &githubReleasePublisher{
		tokenKey:    project.GitHub.TokenKey,
		credentials: credentials,
		newClient:   newClient,
	}
}

func (x *githubReleasePublisher) Name() string { return "github" }

func (x *githubReleasePublisher) Publish(ctx context.Context, release *model.Release) error {
	token, err := x.credentials.Lookup(x.tokenKey)
	if err != nil {
		return err
	}

	client, err := x.newClient(token)
	if err != nil {
		return goerr.Wrap(err, "failed to create GitHub client")
	}

	title := release.Title()
	created, err := client.CreateRelease(ctx, release.Org, release.Project, &github.RepositoryRelease{
		TagName:    github.Ptr(release.Tag),
		Name:       github.Ptr(title),
		Body:       github.Ptr(title),
		Draft:      github.Ptr(false),
		Prerelease: github.Ptr(release.Prerelease()),
	})
	if err != nil {
		return err
	}

	ctxlog.From(ctx).Info("Release created", "url", created.GetHTMLURL())
	return nil
}

type indexPublisher struct {
	target      model.PublishTarget
	credentials interfaces.CredentialStore
	uploader    interfaces.PackageUploader
}

// NewPackageIndexPublisher uploads every built distribution to one index
func NewPackageIndexPublisher(target model.PublishTarget, credentials interfaces.CredentialStore, uploader interfaces.PackageUploader) interfaces.Publisher {
	return &indexPublisher{
		target:      target,
		credentials: credentials,
		uploader:    uploader,
	}
}

func (x *indexPublisher) Name() string { return "index:" + x.target.Name }

func (x *indexPublisher) Publish(ctx context.Context, release *model.Release) error {
	token, err := x.credentials.Lookup(x.target.TokenKey)
	if err != nil {
		return err
	}

	files, err := listFiles(release.ArtifactDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return goerr.New("no distributions to upload", goerr.V("dir", release.ArtifactDir))
	}

	ctxlog.From(ctx).Info("Uploading to package index",
		"index", x.target.Name,
		"url", x.target.URL,
		"username", x.target.Username,
		"files", len(files))

	for _, f := range files {
		if err := x.uploader.Upload(ctx, x.target.URL, x.target.Username, token, f); err != nil {
			return goerr.Wrap(err, "failed to upload distribution",
				goerr.V("index", x.target.Name),
				goerr.V("file", filepath.Base(f)))
		}
	}

	return nil
}

type docsPublisher struct {
	root         string
	remote       string
	remoteBranch string
	runner       interfaces.CommandRunner
}

// NewDocsPublisher deploys the MkDocs site to the documentation branch
func NewDocsPublisher(project *model.Project, root string, runner interfaces.CommandRunner) interfaces.Publisher {
	return &docsPublisher{
		root:         root,
		remote:       project.Docs.Remote,
		remoteBranch: project.Docs.RemoteBranch,
		runner:       runner,
	}
}

func (x *docsPublisher) Name() string { return "docs" }

func (x *docsPublisher) Publish(ctx context.Context, release *model.Release) error {
	ctxlog.From(ctx).Info("Deploying documentation", "branch", x.remoteBranch)

	_, err := x.runner.Run(ctx, x.root, "mkdocs", "gh-deploy",
		"--clean",
		"--force",
		"--message", "Deploy documentation for "+release.Tag,
		"--remote-branch", x.remoteBranch,
		"--remote-name", x.remote,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to deploy documentation")
	}
	return nil
}

type slackPublisher struct {
	webhookKey  string
	credentials interfaces.CredentialStore
	poster      interfaces.WebhookPoster
}

// NewSlackPublisher announces the release on a Slack incoming webhook
func NewSlackPublisher(project *model.Project, credentials interfaces.CredentialStore, poster interfaces.WebhookPoster) interfaces.Publisher {
	return &slackPublisher{
		webhookKey:  project.Slack.WebhookKey,
		credentials: credentials,
		poster:      poster,
	}
}

func (x *slackPublisher) Name() string { return "slack" }

func (x *slackPublisher) Publish(ctx context.Context, release *model.Release) error {
	url, err := x.credentials.Lookup(x.webhookKey)
	if err != nil {
		return err
	}

	return x.poster.Post(ctx, url, "Released "+release.Project+" "+release.Tag)
}

type archivePublisher struct {
	bucket  string
	prefix  string
	storage interfaces.ObjectStorage
}

// NewArchivePublisher copies every built distribution to object storage
// under <prefix>/<version>/
func NewArchivePublisher(project *model.Project, storage interfaces.ObjectStorage) interfaces.Publisher {
	return &archivePublisher{
		bucket:  project.Archive.Bucket,
		prefix:  project.Archive.Prefix,
		storage: storage,
	}
}

func (x *archivePublisher) Name() string { return "archive" }

func (x *archivePublisher) Publish(ctx context.Context, release *model.Release) error {
	logger := ctxlog.From(ctx)

	files, err := listFiles(release.ArtifactDir)
	if err != nil {
		return err
	}

	for _, f := range files {
		name := path.Join(x.prefix, release.Version.String(), filepath.Base(f))
		if err := x.put(ctx, f, name); err != nil {
			return err
		}
		logger.Info("Archived distribution", "url", "gs://"+x.bucket+"/"+name)
	}

	return nil
}

func (x *archivePublisher) put(ctx context.Context, file, name string) error {
	r, err := os.Open(file)
	if err != nil {
		return goerr.Wrap(err, "failed to open distribution", goerr.V("file", file))
	}
	defer r.Close()

	return x.storage.Put(ctx, x.bucket, name, r)
}
