package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fmtr/relkit/pkg/cli/config"
	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
	"github.com/fmtr/relkit/pkg/infra/command"
	"github.com/fmtr/relkit/pkg/infra/credential"
	"github.com/fmtr/relkit/pkg/infra/gcs"
	"github.com/fmtr/relkit/pkg/infra/git"
	githubinfra "github.com/fmtr/relkit/pkg/infra/github"
	"github.com/fmtr/relkit/pkg/infra/pypi"
	"github.com/fmtr/relkit/pkg/infra/slack"
	"github.com/fmtr/relkit/pkg/usecase"
)

func cmdRelease() *cli.Command {
	var (
		projectCfg config.Project
		githubCfg  config.GitHub
		archiveCfg config.Archive
		dryRun     bool
	)

	flags := append(projectCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Compute the next version and stop before any change",
		Destination: &dryRun,
		Sources:     cli.EnvVars("RELKIT_DRY_RUN"),
	})

	return &cli.Command{
		Name:  "release",
		Usage: "Cut a release: bump, commit, tag, push, build and publish",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			project, err := projectCfg.Load()
			if err != nil {
				return err
			}
			root, err := projectCfg.Root()
			if err != nil {
				return err
			}

			repo, err := git.Open(root)
			if err != nil {
				return err
			}

			deps := &usecase.Dependencies{
				Root:        repo.Root(),
				Runner:      command.NewRunner(),
				Credentials: credential.NewEnv(),
				GitHub:      githubClientFactory(githubCfg.APIURL, project),
				Uploader:    pypi.NewUploader(),
				Poster:      slack.NewWebhookPoster(),
			}
			if project.Archive.Bucket != "" && !dryRun {
				storage, err := gcs.New(ctx, archiveCfg.ClientOptions()...)
				if err != nil {
					return err
				}
				deps.Storage = storage
			}

			publishers, err := usecase.BuildPublishers(project, deps)
			if err != nil {
				return err
			}

			releaser := usecase.NewReleaser(project, repo,
				usecase.NewVersionStore(project, deps.Root),
				usecase.BuildIncrementors(project, deps),
				usecase.BuildPackagers(project, deps),
				publishers,
				usecase.WithDryRun(dryRun),
			)

			logger.Info("Starting release",
				"project", project.Name,
				"repo", deps.Root,
				"dry_run", dryRun)

			result, err := releaser.Run(ctx)
			printResult(c.Root().Writer, result)
			return err
		},
	}
}

func githubClientFactory(apiURL string, project *model.Project) usecase.GitHubClientFactory {
	if apiURL == "" {
		apiURL = project.GitHub.APIURL
	}

	return func(token types.Secret) (interfaces.GitHubClient, error) {
		var opts []githubinfra.Option
		if apiURL != "" {
			opts = append(opts, githubinfra.WithBaseURL(apiURL))
		}
		client, err := githubinfra.NewClient(token, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub client")
		}
		return client, nil
	}
}

func printResult(w io.Writer, result *model.Result) {
	if result == nil || result.Release == nil {
		return
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed, color.Bold)
	release := result.Release

	bold.Fprintf(w, "%s %s -> %s (%s)\n", release.Project, release.Previous, release.Version, release.Tag)

	if result.DryRun {
		fmt.Fprintln(w, "  dry run, nothing changed")
		return
	}

	if release.Commit != "" {
		fmt.Fprintf(w, "  commit     %s\n", release.Commit)
	}
	for _, c := range result.Changes {
		action := "update"
		if c.Remove {
			action = "remove"
		}
		fmt.Fprintf(w, "  %-10s %s\n", action, c.Path)
	}
	for _, a := range result.Artifacts {
		fmt.Fprintf(w, "  artifact   %s\n", filepath.Base(a))
	}
	for _, p := range result.Published {
		green.Fprintf(w, "  published  %s\n", p)
	}

	if result.Stage == model.StageDone {
		green.Fprintln(w, "done")
	} else {
		red.Fprintf(w, "stopped at %s\n", result.Stage)
	}
}
