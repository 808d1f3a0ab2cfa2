package usecase

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
)

type pythonBuildPackager struct {
	kind   model.ArtifactKind
	python string
	runner interfaces.CommandRunner
}

// NewWheelPackager builds a wheel with the Python build front-end
func NewWheelPackager(project *model.Project, runner interfaces.CommandRunner) interfaces.Packager {
	return &pythonBuildPackager{kind: model.ArtifactWheel, python: project.Python, runner: runner}
}

// NewSourceDistributionPackager builds an sdist with the Python build front-end
func NewSourceDistributionPackager(project *model.Project, runner interfaces.CommandRunner) interfaces.Packager {
	return &pythonBuildPackager{kind: model.ArtifactSourceDistribution, python: project.Python, runner: runner}
}

func (x *pythonBuildPackager) Kind() model.ArtifactKind { return x.kind }

func (x *pythonBuildPackager) Package(ctx context.Context, sourceDir, outputDir string) ([]string, error) {
	logger := ctxlog.From(ctx)

	before, err := listFiles(outputDir)
	if err != nil {
		return nil, err
	}

	logger.Info("Building distribution",
		"kind", string(x.kind),
		"source", sourceDir,
		"output", outputDir)

	args := []string{"-m", "build", "--" + string(x.kind), "--outdir", outputDir, sourceDir}
	if _, err := x.runner.Run(ctx, sourceDir, x.python, args...); err != nil {
		return nil, goerr.Wrap(err, "failed to build distribution", goerr.V("kind", string(x.kind)))
	}

	after, err := listFiles(outputDir)
	if err != nil {
		return nil, err
	}

	var built []string
	for _, f := range after {
		if !slices.Contains(before, f) {
			built = append(built, f)
		}
	}

	logger.Info("Build complete",
		"kind", string(x.kind),
		"files", built)

	return built, nil
}

// listFiles returns the sorted regular files directly under dir
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read directory", goerr.V("dir", dir))
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}
