package model

// FileMode is a git tree entry mode. Zero means "unspecified".
type FileMode uint32

const (
	ModeRegular    FileMode = 0100644
	ModeExecutable FileMode = 0100755
	ModeSymlink    FileMode = 0120000
)

// StagedChange is one file overlay produced by an Incrementor and consumed by
// the commit step. Path is relative to the repository root and slash
// separated.
type StagedChange struct {
	Path    string
	Content []byte
	// Mode is the tree entry mode. Zero keeps the mode the path has in the
	// parent commit, or ModeRegular for a new path.
	Mode FileMode
	// Remove stages a deletion of Path. Content and Mode are ignored.
	Remove bool
}
