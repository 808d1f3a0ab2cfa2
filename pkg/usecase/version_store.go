package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
)

type versionStore struct {
	path   string
	policy model.BumpPolicy
}

// NewVersionStore creates a VersionStore over the project version file in root
func NewVersionStore(project *model.Project, root string) interfaces.VersionStore {
	return &versionStore{
		path:   filepath.Join(root, filepath.FromSlash(project.Paths.Version)),
		policy: project.Bump,
	}
}

func (x *versionStore) Current(ctx context.Context) (model.Version, error) {
	raw, err := os.ReadFile(x.path)
	if err != nil {
		return model.Version{}, goerr.Wrap(err, "failed to read version file", goerr.V("path", x.path))
	}

	v, err := model.ParseVersion(string(raw))
	if err != nil {
		return model.Version{}, goerr.Wrap(err, "version file does not hold a version", goerr.V("path", x.path))
	}

	return v, nil
}

func (x *versionStore) Next(ctx context.Context) (model.Version, model.Version, error) {
	current, err := x.Current(ctx)
	if err != nil {
		return model.Version{}, model.Version{}, err
	}

	next, err := current.Next(x.policy)
	if err != nil {
		return model.Version{}, model.Version{}, goerr.Wrap(err, "failed to compute next version",
			goerr.V("current", current.String()))
	}

	ctxlog.From(ctx).Debug("Computed next version",
		"current", current.String(),
		"next", next.String(),
		"policy", string(x.policy))

	return current, next, nil
}
