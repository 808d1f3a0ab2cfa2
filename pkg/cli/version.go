package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/fmtr/relkit/pkg/cli/config"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/infra/git"
	"github.com/fmtr/relkit/pkg/usecase"
)

func cmdVersion() *cli.Command {
	var projectCfg config.Project

	return &cli.Command{
		Name:  "version",
		Usage: "Show the current version, the next one and its tag",
		Flags: projectCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			project, err := projectCfg.Load()
			if err != nil {
				return err
			}
			root, err := projectCfg.Root()
			if err != nil {
				return err
			}

			current, next, err := usecase.NewVersionStore(project, root).Next(ctx)
			if err != nil {
				return err
			}
			tag := model.TagName(next)

			repo, err := git.Open(root)
			if err != nil {
				return err
			}
			exists, err := repo.HasTag(ctx, tag)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "current  %s\n", current)
			fmt.Fprintf(w, "next     %s (%s)\n", next, project.Bump)
			if exists {
				color.New(color.FgRed).Fprintf(w, "tag      %s already exists\n", tag)
			} else {
				fmt.Fprintf(w, "tag      %s\n", tag)
			}
			return nil
		},
	}
}
