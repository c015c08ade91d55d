// Package mailgun implements a Provider backed by the Mailgun API.
package mailgun

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/provider"
)

// Config holds the configuration for creating a Provider.
type Config struct {
	APIKey string
	Domain string
	// Region selects the API base: "eu" or anything else for US.
	Region string
	// BaseURL overrides Region when set. A missing /vN suffix becomes /v3.
	BaseURL string
	Retry   provider.Retry
}

// Provider sends emails through Mailgun.
type Provider struct {
	client *mailgun.MailgunImpl
	retry  provider.Retry
}

// New creates a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mailgun API key is required")
	}
	if cfg.Domain == "" {
		return nil, errors.New("mailgun domain is required")
	}

	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		base, err := apiBase(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		mg.SetAPIBase(base)
	case strings.EqualFold(cfg.Region, "eu"):
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	mg.SetClient(&http.Client{Timeout: 30 * time.Second})

	return &Provider{client: mg, retry: cfg.Retry}, nil
}

// apiVersionSuffix matches the /vN path the client requires on its base.
var apiVersionSuffix = regexp.MustCompile(`/v[1-5]$`)

// apiBase returns raw with a /v3 suffix when it carries no API version.
func apiBase(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid mailgun base url %q", raw)
	}
	base := strings.TrimRight(raw, "/")
	if !apiVersionSuffix.MatchString(base) {
		base += "/v3"
	}
	return base, nil
}

// Send delivers msg and returns the Mailgun message id.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	m := p.buildMessage(msg)

	return p.retry.Do(ctx, p.Name(), func(ctx context.Context) (string, error) {
		_, id, err := p.client.Send(ctx, m)
		if err != nil {
			status := statusOf(err)
			err = fmt.Errorf("mailgun: failed to send email: %w", err)
			if rejected(status) {
				return "", provider.Reject(p.Name(), err)
			}
			return "", err
		}
		return id, nil
	})
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mailgun"
}

func (p *Provider) buildMessage(msg *email.Message) *mailgun.Message {
	m := p.client.NewMessage(msg.From.String(), msg.Subject, msg.Text, email.Strings(msg.To)...)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	for _, cc := range msg.Cc {
		m.AddCC(cc.String())
	}
	for _, bcc := range msg.Bcc {
		m.AddBCC(bcc.String())
	}
	if msg.ReplyTo != nil {
		m.SetReplyTo(msg.ReplyTo.String())
	}
	for _, a := range msg.Attachments {
		m.AddBufferAttachment(a.Filename, a.Content)
	}
	return m
}

// statusOf extracts the HTTP status from a client error, or -1.
func statusOf(err error) int {
	var unexpected *mailgun.UnexpectedResponseError
	if errors.As(err, &unexpected) {
		return unexpected.Actual
	}
	return mailgun.GetStatusFromErr(err)
}

// rejected reports whether an HTTP status means Mailgun refused the message.
func rejected(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusTooManyRequests &&
		status != http.StatusUnauthorized
}
