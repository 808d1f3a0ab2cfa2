package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
)

type client struct {
	storage *storage.Client
}

// New creates an ObjectStorage backed by Google Cloud Storage. Credentials
// come from Application Default Credentials unless opts say otherwise.
func New(ctx context.Context, opts ...option.ClientOption) (interfaces.ObjectStorage, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &client{storage: c}, nil
}

func (x *client) Put(ctx context.Context, bucket, name string, r io.Reader) error {
	w := x.storage.Bucket(bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", bucket),
			goerr.V("name", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", bucket),
			goerr.V("name", name))
	}
	return nil
}
