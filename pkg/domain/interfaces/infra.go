package interfaces

import (
	"context"
	"io"

	"github.com/fmtr/relkit/pkg/domain/types"
)

// CommandRunner runs an external program
type CommandRunner interface {
	// Run executes name with args in dir and returns its combined output
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// CredentialStore resolves named credentials
type CredentialStore interface {
	// Lookup returns the value of key, or an error wrapping
	// types.ErrCredentialNotFound
	Lookup(key string) (types.Secret, error)
}

// PackageUploader uploads a distributable to a package index
type PackageUploader interface {
	// Upload sends one distribution file to url with basic credentials
	Upload(ctx context.Context, url, username string, password types.Secret, file string) error
}

// WebhookPoster posts a text message to an incoming chat webhook
type WebhookPoster interface {
	// Post sends text to url
	Post(ctx context.Context, url types.Secret, text string) error
}

// ObjectStorage stores objects in a bucket
type ObjectStorage interface {
	// Put writes r to bucket/name
	Put(ctx context.Context, bucket, name string, r io.Reader) error
}
