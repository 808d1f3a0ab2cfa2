package usecase

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// Dependencies are the infrastructure clients components are built from.
// Storage may be nil when no archive bucket is configured.
type Dependencies struct {
	Root        string
	Runner      interfaces.CommandRunner
	Credentials interfaces.CredentialStore
	GitHub      GitHubClientFactory
	Uploader    interfaces.PackageUploader
	Poster      interfaces.WebhookPoster
	Storage     interfaces.ObjectStorage
}

type incrementorEntry struct {
	kind  string
	build func(p *model.Project, d *Dependencies) interfaces.Incrementor
}

type packagerEntry struct {
	kind  model.ArtifactKind
	build func(p *model.Project, d *Dependencies) interfaces.Packager
}

type publisherEntry struct {
	kind    string
	enabled func(p *model.Project) bool
	build   func(p *model.Project, d *Dependencies) (interfaces.Publisher, error)
}

// Registration order is the run order.
var incrementorRegistry = []incrementorEntry{
	{"version_file", func(p *model.Project, d *Dependencies) interfaces.Incrementor {
		return NewVersionFileIncrementor(p, d.Root)
	}},
	{"deployment_manifest", func(p *model.Project, d *Dependencies) interfaces.Incrementor {
		return NewDeploymentManifestIncrementor(p, d.Root)
	}},
	{"changelog", func(p *model.Project, d *Dependencies) interfaces.Incrementor {
		return NewChangelogIncrementor(p, d.Root)
	}},
}

var packagerRegistry = []packagerEntry{
	{model.ArtifactWheel, func(p *model.Project, d *Dependencies) interfaces.Packager {
		return NewWheelPackager(p, d.Runner)
	}},
	{model.ArtifactSourceDistribution, func(p *model.Project, d *Dependencies) interfaces.Packager {
		return NewSourceDistributionPackager(p, d.Runner)
	}},
}

var publisherRegistry = []publisherEntry{
	{
		kind:    "github",
		enabled: func(p *model.Project) bool { return true },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			return NewGitHubReleasePublisher(p, d.Credentials, d.GitHub), nil
		},
	},
	{
		kind:    "index:private",
		enabled: func(p *model.Project) bool { return true },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			return NewPackageIndexPublisher(p.PrivateIndex(), d.Credentials, d.Uploader), nil
		},
	},
	{
		kind:    "docs",
		enabled: func(p *model.Project) bool { return p.Docs.Enabled },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			return NewDocsPublisher(p, d.Root, d.Runner), nil
		},
	},
	{
		kind:    "index:pypi",
		enabled: func(p *model.Project) bool { return p.Public },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			return NewPackageIndexPublisher(p.PublicIndex(), d.Credentials, d.Uploader), nil
		},
	},
	{
		kind:    "archive",
		enabled: func(p *model.Project) bool { return p.Archive.Bucket != "" },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			if d.Storage == nil {
				return nil, goerr.Wrap(types.ErrInvalidConfig, "archive bucket is set but no object storage is available",
					goerr.V("bucket", p.Archive.Bucket))
			}
			return NewArchivePublisher(p, d.Storage), nil
		},
	},
	{
		kind:    "slack",
		enabled: func(p *model.Project) bool { return p.Slack.Enabled },
		build: func(p *model.Project, d *Dependencies) (interfaces.Publisher, error) {
			return NewSlackPublisher(p, d.Credentials, d.Poster), nil
		},
	},
}

// BuildIncrementors returns every incrementor in run order
func BuildIncrementors(project *model.Project, deps *Dependencies) []interfaces.Incrementor {
	result := make([]interfaces.Incrementor, 0, len(incrementorRegistry))
	for _, e := range incrementorRegistry {
		result = append(result, e.build(project, deps))
	}
	return result
}

// BuildPackagers returns a packager for each configured artifact kind, in
// registry order
func BuildPackagers(project *model.Project, deps *Dependencies) []interfaces.Packager {
	var result []interfaces.Packager
	for _, e := range packagerRegistry {
		if slices.Contains(project.Build, e.kind) {
			result = append(result, e.build(project, deps))
		}
	}
	return result
}

// BuildPublishers returns every enabled publisher in run order
func BuildPublishers(project *model.Project, deps *Dependencies) ([]interfaces.Publisher, error) {
	var result []interfaces.Publisher
	for _, e := range publisherRegistry {
		if !e.enabled(project) {
			continue
		}
		p, err := e.build(project, deps)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build publisher", goerr.V("kind", e.kind))
		}
		result = append(result, p)
	}
	return result, nil
}
