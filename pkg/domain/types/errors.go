package types

import "errors"

var (
	// ErrTagExists is returned when the tag for the computed version is already
	// present in the repository. A release never reuses a tag.
	ErrTagExists = errors.New("tag already exists")

	// ErrReleaseDiverged is returned when the release branch is not an ancestor
	// of the new primary commit.
	ErrReleaseDiverged = errors.New("release branch has diverged from primary branch")

	// ErrCredentialNotFound is returned by a credential store on lookup of an
	// unset key.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidVersion is returned when a version string is not a strict
	// semantic version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidConfig is returned when the project configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
