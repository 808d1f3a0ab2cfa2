package config

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// Project selects the repository and its release configuration file
type Project struct {
	Repo string
	File string
}

// Flags returns CLI flags for project configuration
func (c *Project) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repo",
			Aliases:     []string{"r"},
			Usage:       "Path to the repository working copy",
			Value:       ".",
			Destination: &c.Repo,
			Sources:     cli.EnvVars("RELKIT_REPO"),
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Release configuration file, relative to the repository",
			Value:       "relkit.toml",
			Destination: &c.File,
			Sources:     cli.EnvVars("RELKIT_CONFIG"),
		},
	}
}

// Root returns the absolute repository path
func (c *Project) Root() (string, error) {
	root, err := filepath.Abs(c.Repo)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve repository path", goerr.V("repo", c.Repo))
	}
	return root, nil
}

// Load reads, defaults and validates the release configuration
func (c *Project) Load() (*model.Project, error) {
	path := c.File
	if !filepath.IsAbs(path) {
		root, err := c.Root()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(root, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open config file", goerr.V("path", path))
	}
	defer f.Close()

	var project model.Project
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&project); err != nil {
		return nil, goerr.Wrap(types.ErrInvalidConfig, "failed to parse config file",
			goerr.V("path", path),
			goerr.V("reason", err.Error()))
	}

	project.SetDefaults()
	if err := project.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config file", goerr.V("path", path))
	}

	return &project, nil
}
