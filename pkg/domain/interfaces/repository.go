package interfaces

import (
	"context"

	"github.com/fmtr/relkit/pkg/domain/model"
)

// SourceRepository is a local working copy with a single remote. It owns the
// primary branch and the release branch references.
type SourceRepository interface {
	// Fetch pulls all branch and tag refs from the remote
	Fetch(ctx context.Context) error

	// StageAndCommit writes a commit on the primary branch whose tree is the
	// primary head's tree overlaid with exactly the given changes
	StageAndCommit(ctx context.Context, changes []model.StagedChange, message string) (model.CommitID, error)

	// Tag creates an annotated tag. It fails with types.ErrTagExists when the
	// name is taken
	Tag(ctx context.Context, name string, commit model.CommitID, message string) error

	// FastForwardRelease advances the release branch to commit. It fails with
	// types.ErrReleaseDiverged when that is not a fast-forward
	FastForwardRelease(ctx context.Context, commit model.CommitID) error

	// Push pushes the primary branch, the release branch and all tags
	Push(ctx context.Context) error

	// Tags returns the names of all tags
	Tags(ctx context.Context) ([]string, error)

	// HasTag reports whether a tag exists
	HasTag(ctx context.Context, name string) (bool, error)

	// Root returns the working tree root directory
	Root() string
}
