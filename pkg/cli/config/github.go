package config

import "github.com/urfave/cli/v3"

// GitHub holds GitHub API configuration
type GitHub struct {
	APIURL string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub API root, overrides github.api_url of the config file",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("RELKIT_GITHUB_API_URL"),
		},
	}
}
