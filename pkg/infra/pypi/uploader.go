package pypi

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// errBodyLimit caps how much of an error response is kept in the error
const errBodyLimit = 1024

type uploader struct {
	httpClient *http.Client
}

// Option configures the uploader
type Option func(*uploader)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(u *uploader) {
		u.httpClient = c
	}
}

// NewUploader creates a package uploader speaking the legacy upload protocol
// implemented by PyPI, Warehouse and most private indexes.
func NewUploader(opts ...Option) interfaces.PackageUploader {
	u := &uploader{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (x *uploader) Upload(ctx context.Context, url, username string, password types.Secret, file string) error {
	dist, err := ParseFilename(file)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return goerr.Wrap(err, "failed to read distribution", goerr.V("file", file))
	}

	body, contentType, err := encodeForm(dist, filepath.Base(file), content)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return goerr.Wrap(err, "failed to create upload request", goerr.V("url", url))
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(username, password.Unsafe())

	logger := ctxlog.From(ctx)
	logger.Info("Uploading distribution",
		"url", url,
		"file", filepath.Base(file),
		"size", len(content))

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to upload distribution", goerr.V("url", url), goerr.V("file", file))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return goerr.New("package index rejected upload",
			goerr.V("url", url),
			goerr.V("file", filepath.Base(file)),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(msg)))
	}

	return nil
}

func encodeForm(dist *Distribution, filename string, content []byte) (io.Reader, string, error) {
	md5sum := md5.Sum(content)
	sha256sum := sha256.Sum256(content)
	blake2sum := blake2b.Sum256(content)

	fields := [][2]string{
		{":action", "file_upload"},
		{"protocol_version", "1"},
		{"metadata_version", "2.1"},
		{"name", dist.Name},
		{"version", dist.Version},
		{"filetype", dist.FileType},
		{"pyversion", dist.PyVersion},
		{"md5_digest", hex.EncodeToString(md5sum[:])},
		{"sha256_digest", hex.EncodeToString(sha256sum[:])},
		{"blake2_256_digest", hex.EncodeToString(blake2sum[:])},
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", goerr.Wrap(err, "failed to write form field", goerr.V("field", f[0]))
		}
	}

	part, err := w.CreateFormFile("content", filename)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to create form file")
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", goerr.Wrap(err, "failed to write form file")
	}
	if err := w.Close(); err != nil {
		return nil, "", goerr.Wrap(err, "failed to close form")
	}

	return buf, w.FormDataContentType(), nil
}
