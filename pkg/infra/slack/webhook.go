package slack

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/types"
)

type poster struct {
	httpClient *http.Client
}

// Option configures the webhook poster
type Option func(*poster)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(p *poster) {
		p.httpClient = c
	}
}

// NewWebhookPoster creates a poster for Slack incoming webhooks
func NewWebhookPoster(opts ...Option) interfaces.WebhookPoster {
	p := &poster{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (x *poster) Post(ctx context.Context, url types.Secret, text string) error {
	msg := &slack.WebhookMessage{Text: text}

	var err error
	if x.httpClient != nil {
		err = slack.PostWebhookCustomHTTPContext(ctx, url.Unsafe(), x.httpClient, msg)
	} else {
		err = slack.PostWebhookContext(ctx, url.Unsafe(), msg)
	}
	if err != nil {
		// the URL is a credential and is not attached
		return goerr.Wrap(err, "failed to post Slack webhook")
	}

	return nil
}
