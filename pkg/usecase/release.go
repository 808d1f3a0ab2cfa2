package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
	"github.com/fmtr/relkit/pkg/utils/async"
)

type releaser struct {
	project      *model.Project
	repo         interfaces.SourceRepository
	versions     interfaces.VersionStore
	incrementors []interfaces.Incrementor
	packagers    []interfaces.Packager
	publishers   []interfaces.Publisher

	dryRun   bool
	newRunID func() string

	// versions are resolved on the first run and kept, so every run of one
	// releaser targets the same tag
	resolved       bool
	previous, next model.Version
}

// ReleaserOption configures the release pipeline
type ReleaserOption func(*releaser)

// WithDryRun stops the pipeline once the next version is known. Nothing is
// written, committed, pushed, built or published.
func WithDryRun(dryRun bool) ReleaserOption {
	return func(r *releaser) {
		r.dryRun = dryRun
	}
}

// WithRunID replaces the run ID generator
func WithRunID(newRunID func() string) ReleaserOption {
	return func(r *releaser) {
		r.newRunID = newRunID
	}
}

// NewReleaser creates the release pipeline. Components run in the order given.
func NewReleaser(
	project *model.Project,
	repo interfaces.SourceRepository,
	versions interfaces.VersionStore,
	incrementors []interfaces.Incrementor,
	packagers []interfaces.Packager,
	publishers []interfaces.Publisher,
	opts ...ReleaserOption,
) interfaces.ReleaseUseCase {
	r := &releaser{
		project:      project,
		repo:         repo,
		versions:     versions,
		incrementors: incrementors,
		packagers:    packagers,
		publishers:   publishers,
		newRunID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fetch, increment, push, package and publish once. On failure
// the returned result records the stage that failed.
func (uc *releaser) Run(ctx context.Context) (*model.Result, error) {
	runID := uc.newRunID()
	logger := ctxlog.From(ctx).With("run_id", runID, "project", uc.project.Name)
	ctx = ctxlog.With(ctx, logger)

	result := &model.Result{DryRun: uc.dryRun}
	fail := func(err error) (*model.Result, error) {
		logger.Error("Release failed", "stage", string(result.Stage), "error", err)
		return result, goerr.Wrap(err, "release failed", goerr.V("stage", string(result.Stage)))
	}

	result.Stage = model.StageFetch
	logger.Info("Fetching from remote")
	if err := uc.repo.Fetch(ctx); err != nil {
		return fail(err)
	}

	result.Stage = model.StageIncrement
	release, err := uc.prepare(ctx, runID)
	if err != nil {
		return fail(err)
	}
	result.Release = release

	if uc.dryRun {
		logger.Info("Dry run, stopping before any change",
			"current", release.Previous.String(),
			"next", release.Version.String(),
			"tag", release.Tag)
		return result, nil
	}

	changes, err := uc.increment(ctx, release)
	if err != nil {
		return fail(err)
	}
	result.Changes = changes

	result.Stage = model.StagePush
	logger.Info("Pushing to remote", "tag", release.Tag)
	if err := uc.repo.Push(ctx); err != nil {
		return fail(err)
	}

	result.Stage = model.StagePackage
	artifacts, err := uc.pack(ctx, release)
	if err != nil {
		return fail(err)
	}
	result.Artifacts = artifacts

	result.Stage = model.StagePublish
	published, err := uc.publish(ctx, release)
	result.Published = published
	if err != nil {
		return fail(err)
	}

	result.Stage = model.StageDone
	logger.Info("Release complete",
		"version", release.Version.String(),
		"tag", release.Tag,
		"commit", string(release.Commit))

	return result, nil
}

// prepare computes the next version and checks its tag is free
func (uc *releaser) prepare(ctx context.Context, runID string) (*model.Release, error) {
	if !uc.resolved {
		previous, next, err := uc.versions.Next(ctx)
		if err != nil {
			return nil, err
		}
		uc.previous, uc.next, uc.resolved = previous, next, true
	}
	previous, next := uc.previous, uc.next

	tag := model.TagName(next)
	exists, err := uc.repo.HasTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, goerr.Wrap(types.ErrTagExists, "version is already tagged",
			goerr.V("tag", tag),
			goerr.V("current", previous.String()))
	}

	artifactDir, err := uc.artifactDir()
	if err != nil {
		return nil, err
	}

	return &model.Release{
		RunID:       runID,
		Project:     uc.project.Name,
		Org:         uc.project.Org,
		Previous:    previous,
		Version:     next,
		Tag:         tag,
		Message:     "Release version " + next.String(),
		ArtifactDir: artifactDir,
	}, nil
}

// increment applies every incrementor, then commits, tags and advances the
// release branch
func (uc *releaser) increment(ctx context.Context, release *model.Release) ([]model.StagedChange, error) {
	logger := ctxlog.From(ctx)

	var changes []model.StagedChange
	for _, inc := range uc.incrementors {
		c, err := inc.Apply(ctx, release.Version)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to apply incrementor", goerr.V("incrementor", inc.Name()))
		}
		changes = append(changes, c...)
	}

	commit, err := uc.repo.StageAndCommit(ctx, changes, release.Message)
	if err != nil {
		return nil, err
	}
	release.Commit = commit
	logger.Info("Committed version increment",
		"commit", string(commit),
		"files", len(changes))

	if err := uc.repo.Tag(ctx, release.Tag, commit, release.Message); err != nil {
		return nil, err
	}
	if err := uc.repo.FastForwardRelease(ctx, commit); err != nil {
		return nil, err
	}

	return changes, nil
}

// artifactDir resolves the directory packagers build into. It is wiped before
// packaging, so it must not be the working copy or any of its parents.
func (uc *releaser) artifactDir() (string, error) {
	dir := uc.project.ArtifactDir
	switch {
	case dir == "":
		dir = filepath.Join(os.TempDir(), "relkit", uc.project.Name)
	case !filepath.IsAbs(dir):
		dir = filepath.Join(uc.repo.Root(), dir)
	}

	if containsPath(dir, uc.repo.Root()) {
		return "", goerr.Wrap(types.ErrInvalidConfig, "artifact directory contains the repository",
			goerr.V("artifact_dir", dir),
			goerr.V("root", uc.repo.Root()))
	}
	return dir, nil
}

// containsPath reports whether target is dir or lies below it
func containsPath(dir, target string) bool {
	rel, err := filepath.Rel(resolvePath(dir), resolvePath(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func resolvePath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return filepath.Clean(p)
}

// pack recreates the artifact directory and runs every packager into it
func (uc *releaser) pack(ctx context.Context, release *model.Release) ([]string, error) {
	logger := ctxlog.From(ctx)
	dir := release.ArtifactDir

	if _, err := os.Stat(dir); err == nil {
		logger.Warn("Artifact directory already exists, removing", "dir", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, goerr.Wrap(err, "failed to remove artifact directory", goerr.V("dir", dir))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact directory", goerr.V("dir", dir))
	}

	var artifacts []string
	for _, p := range uc.packagers {
		files, err := p.Package(ctx, uc.repo.Root(), dir)
		if err != nil {
			return artifacts, goerr.Wrap(err, "failed to package", goerr.V("kind", string(p.Kind())))
		}
		artifacts = append(artifacts, files...)
	}

	return artifacts, nil
}

// publish runs publishers in order and stops at the first failure, or runs
// them all concurrently when the project asks for it. It returns the names of
// the publishers that succeeded.
func (uc *releaser) publish(ctx context.Context, release *model.Release) ([]string, error) {
	if !uc.project.Publish.Parallel {
		var published []string
		for _, p := range uc.publishers {
			if err := uc.publishOne(ctx, p, release); err != nil {
				return published, err
			}
			published = append(published, p.Name())
		}
		return published, nil
	}

	ok := make([]bool, len(uc.publishers))
	handlers := make([]func(ctx context.Context) error, len(uc.publishers))
	for i, p := range uc.publishers {
		handlers[i] = func(ctx context.Context) error {
			if err := uc.publishOne(ctx, p, release); err != nil {
				return err
			}
			ok[i] = true
			return nil
		}
	}

	err := async.Dispatch(ctx, handlers...)

	var published []string
	for i, p := range uc.publishers {
		if ok[i] {
			published = append(published, p.Name())
		}
	}
	if err != nil {
		return published, goerr.Wrap(err, "one or more publishers failed")
	}
	return published, nil
}

func (uc *releaser) publishOne(ctx context.Context, p interfaces.Publisher, release *model.Release) error {
	ctxlog.From(ctx).Info("Publishing", "publisher", p.Name(), "tag", release.Tag)
	if err := p.Publish(ctx, release); err != nil {
		return goerr.Wrap(err, "failed to publish", goerr.V("publisher", p.Name()))
	}
	return nil
}
