package model

// ArtifactKind is the kind of distributable a packager produces.
type ArtifactKind string

const (
	ArtifactWheel              ArtifactKind = "wheel"
	ArtifactSourceDistribution ArtifactKind = "sdist"
)

// PublishTarget describes one package index. It carries configuration only.
type PublishTarget struct {
	Name     string // Human readable name, also the index name in logs
	URL      string // Upload endpoint
	Username string
	TokenKey string // Credential lookup key of the upload token
}
