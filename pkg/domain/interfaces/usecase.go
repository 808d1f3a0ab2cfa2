package interfaces

import (
	"context"

	"github.com/fmtr/relkit/pkg/domain/model"
)

// VersionStore reads the version a project currently declares
type VersionStore interface {
	// Current parses the version file
	Current(ctx context.Context) (model.Version, error)

	// Next returns the current version and the one following it under the
	// project bump policy
	Next(ctx context.Context) (current, next model.Version, err error)
}

// Incrementor embeds a new version into one on-disk artifact
type Incrementor interface {
	// Name identifies the incrementor in logs
	Name() string

	// Apply writes the new version and returns the changes to commit. A nil
	// slice means the artifact is absent and nothing was done
	Apply(ctx context.Context, version model.Version) ([]model.StagedChange, error)
}

// Packager builds one kind of distributable
type Packager interface {
	// Kind returns the artifact kind produced
	Kind() model.ArtifactKind

	// Package builds sourceDir into outputDir and returns the produced files
	Package(ctx context.Context, sourceDir, outputDir string) ([]string, error)
}

// Publisher pushes a release to one external service. Publishing twice is
// not guarded against.
type Publisher interface {
	// Name identifies the publisher in logs and results
	Name() string

	// Publish publishes the release
	Publish(ctx context.Context, release *model.Release) error
}

// ReleaseUseCase runs the release pipeline
type ReleaseUseCase interface {
	// Run executes the pipeline once
	Run(ctx context.Context) (*model.Result, error)
}
