package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/gt"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
	"github.com/fmtr/relkit/pkg/infra/credential"
	"github.com/fmtr/relkit/pkg/usecase"
)

func newRelease(t *testing.T, version string) *model.Release {
	t.Helper()
	v := model.MustParseVersion(version)
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "widget-"+version+"-py3-none-any.whl"), []byte("wheel"), 0644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "widget-"+version+".tar.gz"), []byte("sdist"), 0644))

	return &model.Release{
		RunID:       "run-1",
		Project:     "widget",
		Org:         "acme",
		Version:     v,
		Tag:         model.TagName(v),
		Commit:      "c0ffee",
		Message:     "Release version " + version,
		ArtifactDir: dir,
	}
}

var testCredentials = credential.NewStatic(map[string]string{
	model.DefaultGitHubTokenKey:       "ghp_test",
	model.DefaultPrivateIndexTokenKey: "private-token",
	model.DefaultPublicIndexTokenKey:  "pypi-token",
	model.DefaultSlackWebhookKey:      "https://hooks.slack.com/services/T/B/X",
})

func TestGitHubReleasePublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("creates release for tag", func(t *testing.T) {
		client := &MockGitHubClient{}
		var gotToken types.Secret
		factory := func(token types.Secret) (interfaces.GitHubClient, error) {
			gotToken = token
			return client, nil
		}

		pub := usecase.NewGitHubReleasePublisher(newProject(), testCredentials, factory)
		gt.Equal(t, pub.Name(), "github")
		gt.NoError(t, pub.Publish(ctx, newRelease(t, "1.0.1")))

		gt.Equal(t, gotToken.Unsafe(), "ghp_test")
		gt.Equal(t, len(client.created), 1)
		gt.Equal(t, client.created[0].GetTagName(), "v1.0.1")
		gt.Equal(t, client.created[0].GetName(), "Release v1.0.1")
		gt.Equal(t, client.created[0].GetBody(), "Release v1.0.1")
		gt.Equal(t, client.created[0].GetDraft(), false)
		gt.Equal(t, client.created[0].GetPrerelease(), false)
	})

	t.Run("marks prerelease", func(t *testing.T) {
		client := &MockGitHubClient{}
		factory := func(token types.Secret) (interfaces.GitHubClient, error) { return client, nil }

		pub := usecase.NewGitHubReleasePublisher(newProject(), testCredentials, factory)
		gt.NoError(t, pub.Publish(ctx, newRelease(t, "2.0.0-rc.1")))
		gt.Equal(t, client.created[0].GetPrerelease(), true)
	})

	t.Run("api failure propagates", func(t *testing.T) {
		apiErr := errors.New("422 Validation Failed")
		client := &MockGitHubClient{
			createReleaseFunc: func(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
				return nil, apiErr
			},
		}
		factory := func(token types.Secret) (interfaces.GitHubClient, error) { return client, nil }

		err := usecase.NewGitHubReleasePublisher(newProject(), testCredentials, factory).Publish(ctx, newRelease(t, "1.0.1"))
		gt.True(t, errors.Is(err, apiErr))
	})

	t.Run("missing token fails at first use", func(t *testing.T) {
		factory := func(token types.Secret) (interfaces.GitHubClient, error) {
			t.Error("client must not be created without a token")
			return nil, nil
		}
		pub := usecase.NewGitHubReleasePublisher(newProject(), credential.NewStatic(nil), factory)
		err := pub.Publish(ctx, newRelease(t, "1.0.1"))
		gt.True(t, errors.Is(err, types.ErrCredentialNotFound))
	})
}

func TestPackageIndexPublisher(t *testing.T) {
	ctx := context.Background()
	project := newProject()

	t.Run("uploads every distribution", func(t *testing.T) {
		uploader := &MockUploader{}
		pub := usecase.NewPackageIndexPublisher(project.PrivateIndex(), testCredentials, uploader)
		gt.Equal(t, pub.Name(), "index:private")

		gt.NoError(t, pub.Publish(ctx, newRelease(t, "1.0.1")))
		gt.V(t, uploader.uploads).Equal([]MockUpload{
			{URL: "https://pypi.acme.example/legacy/", Username: "acme", Password: "private-token", File: "widget-1.0.1-py3-none-any.whl"},
			{URL: "https://pypi.acme.example/legacy/", Username: "acme", Password: "private-token", File: "widget-1.0.1.tar.gz"},
		})
	})

	t.Run("public index uses token user", func(t *testing.T) {
		uploader := &MockUploader{}
		pub := usecase.NewPackageIndexPublisher(project.PublicIndex(), testCredentials, uploader)
		gt.NoError(t, pub.Publish(ctx, newRelease(t, "1.0.1")))
		gt.Equal(t, uploader.uploads[0].Username, "__token__")
		gt.Equal(t, uploader.uploads[0].Password.Unsafe(), "pypi-token")
	})

	t.Run("upload failure stops", func(t *testing.T) {
		uploader := &MockUploader{err: errors.New("400 File already exists")}
		pub := usecase.NewPackageIndexPublisher(project.PrivateIndex(), testCredentials, uploader)
		gt.Error(t, pub.Publish(ctx, newRelease(t, "1.0.1")))
		gt.Equal(t, len(uploader.uploads), 1)
	})

	t.Run("empty artifact directory", func(t *testing.T) {
		release := newRelease(t, "1.0.1")
		release.ArtifactDir = t.TempDir()
		pub := usecase.NewPackageIndexPublisher(project.PrivateIndex(), testCredentials, &MockUploader{})
		gt.Error(t, pub.Publish(ctx, release))
	})
}

func TestDocsPublisher(t *testing.T) {
	runner := &MockCommandRunner{}
	pub := usecase.NewDocsPublisher(newProject(), "/repo", runner)
	gt.NoError(t, pub.Publish(context.Background(), newRelease(t, "1.0.1")))

	gt.Equal(t, len(runner.calls), 1)
	gt.Equal(t, runner.calls[0].Dir, "/repo")
	gt.Equal(t, runner.calls[0].Name, "mkdocs")
	gt.V(t, runner.calls[0].Args).Equal([]string{
		"gh-deploy", "--clean", "--force",
		"--message", "Deploy documentation for v1.0.1",
		"--remote-branch", "docs",
		"--remote-name", "origin",
	})
}

func TestSlackPublisher(t *testing.T) {
	poster := &MockPoster{}
	pub := usecase.NewSlackPublisher(newProject(), testCredentials, poster)
	gt.NoError(t, pub.Publish(context.Background(), newRelease(t, "1.0.1")))

	gt.V(t, poster.posts).Equal([]string{"Released widget v1.0.1"})
	gt.Equal(t, poster.urls[0].Unsafe(), "https://hooks.slack.com/services/T/B/X")
}

func TestArchivePublisher(t *testing.T) {
	project := newProject()
	project.Archive.Bucket = "acme-artifacts"
	project.Archive.Prefix = "widget"

	storage := &MockStorage{}
	pub := usecase.NewArchivePublisher(project, storage)
	gt.NoError(t, pub.Publish(context.Background(), newRelease(t, "1.0.1")))

	gt.V(t, storage.objects).Equal(map[string]string{
		"acme-artifacts/widget/1.0.1/widget-1.0.1-py3-none-any.whl": "wheel",
		"acme-artifacts/widget/1.0.1/widget-1.0.1.tar.gz":           "sdist",
	})
}
