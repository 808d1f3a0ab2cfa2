package config

import (
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Archive holds Cloud Storage client configuration for the artifact archive
type Archive struct {
	Endpoint string
}

// Flags returns CLI flags for archive configuration
func (c *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gcs-endpoint",
			Usage:       "Cloud Storage endpoint, for emulators. Disables authentication",
			Destination: &c.Endpoint,
			Sources:     cli.EnvVars("RELKIT_GCS_ENDPOINT"),
		},
	}
}

// ClientOptions returns the Cloud Storage client options
func (c *Archive) ClientOptions() []option.ClientOption {
	if c.Endpoint == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(c.Endpoint),
		option.WithoutAuthentication(),
	}
}
