package model

// CommitID is a hex encoded commit hash.
type CommitID string

// Release represents the state of one release run once the version has been
// committed and tagged. Packagers and publishers receive it read-only.
type Release struct {
	RunID       string  // Unique ID of the orchestrator run
	Project     string  // Project name on the source host
	Org         string  // Organization on the source host
	Previous    Version // Version found in the version file
	Version     Version // Version being released
	Tag         string  // Tag name, TagName(Version)
	Commit      CommitID
	Message     string // Commit and tag message
	ArtifactDir string // Directory holding built distributables
}

// Prerelease reports whether the release is a prerelease.
func (x *Release) Prerelease() bool {
	return x.Version.IsPrerelease()
}

// Title is the human readable release name.
func (x *Release) Title() string {
	return "Release " + x.Tag
}
