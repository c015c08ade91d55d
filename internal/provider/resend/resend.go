// Package resend implements a Provider backed by the Resend API.
package resend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v3"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/provider"
)

// Config holds the configuration for creating a Provider.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the Resend default.
	BaseURL string
	Retry   provider.Retry
}

// Provider sends emails through Resend.
type Provider struct {
	client *resend.Client
	retry  provider.Retry
}

// New creates a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &statusTransport{base: http.DefaultTransport},
	}
	client := resend.NewCustomClient(httpClient, cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &Provider{client: client, retry: cfg.Retry}, nil
}

// Send delivers msg and returns the Resend email id.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	req := buildRequest(msg)

	return p.retry.Do(ctx, p.Name(), func(ctx context.Context) (string, error) {
		var status int
		resp, err := p.client.Emails.SendWithContext(withStatus(ctx, &status), req)
		if err != nil {
			err = fmt.Errorf("resend: failed to send email: %w", err)
			if rejected(status) {
				return "", provider.Reject(p.Name(), err)
			}
			return "", err
		}
		return resp.Id, nil
	})
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

func buildRequest(msg *email.Message) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    msg.From.String(),
		To:      email.Strings(msg.To),
		Cc:      email.Strings(msg.Cc),
		Bcc:     email.Strings(msg.Bcc),
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.ReplyTo != nil {
		req.ReplyTo = msg.ReplyTo.String()
	}
	if len(msg.Attachments) > 0 {
		req.Attachments = make([]*resend.Attachment, len(msg.Attachments))
		for i, a := range msg.Attachments {
			req.Attachments[i] = &resend.Attachment{
				Filename:    a.Filename,
				Content:     a.Content,
				ContentType: a.ContentType,
			}
		}
	}
	return req
}

// rejected reports whether an HTTP status means Resend refused the message.
func rejected(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusTooManyRequests &&
		status != http.StatusUnauthorized
}

type statusKey struct{}

func withStatus(ctx context.Context, status *int) context.Context {
	return context.WithValue(ctx, statusKey{}, status)
}

// statusTransport records the response status code into the *int carried
// by the request context, if any. The SDK does not expose it on errors.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if status, ok := req.Context().Value(statusKey{}).(*int); ok {
			*status = resp.StatusCode
		}
	}
	return resp, err
}
