package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fmtr/relkit/pkg/cli/config"
	"github.com/fmtr/relkit/pkg/infra/credential"
	"github.com/fmtr/relkit/pkg/infra/git"
)

func cmdTags() *cli.Command {
	var (
		projectCfg config.Project
		githubCfg  config.GitHub
		releases   bool
	)

	flags := append(projectCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "releases",
		Usage:       "List GitHub release tags instead of local tags",
		Destination: &releases,
	})

	return &cli.Command{
		Name:  "tags",
		Usage: "List existing tags",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			root, err := projectCfg.Root()
			if err != nil {
				return err
			}

			var tags []string
			if releases {
				project, err := projectCfg.Load()
				if err != nil {
					return err
				}
				token, err := credential.NewEnv().Lookup(project.GitHub.TokenKey)
				if err != nil {
					return err
				}
				client, err := githubClientFactory(githubCfg.APIURL, project)(token)
				if err != nil {
					return err
				}
				tags, err = client.ListReleaseTags(ctx, project.Org, project.Name)
				if err != nil {
					return err
				}
			} else {
				repo, err := git.Open(root)
				if err != nil {
					return err
				}
				tags, err = repo.Tags(ctx)
				if err != nil {
					return err
				}
			}

			w := c.Root().Writer
			for _, tag := range tags {
				fmt.Fprintln(w, tag)
			}
			return nil
		},
	}
}
