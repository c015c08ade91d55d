// Package dispatch runs a send request end to end: authorize the key,
// normalize the request into a Message and hand it to the provider.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/mailgate/internal/auth"
	"github.com/shineum/mailgate/internal/mailerr"
	"github.com/shineum/mailgate/internal/metrics"
	"github.com/shineum/mailgate/internal/normalize"
	"github.com/shineum/mailgate/internal/provider"
)

// DefaultTimeout bounds a single provider dispatch.
const DefaultTimeout = 30 * time.Second

// Gateway is the send pipeline shared by both API dialects.
type Gateway struct {
	auth       auth.Authorizer
	normalizer *normalize.Normalizer
	provider   provider.Provider
	timeout    time.Duration
	log        *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the provider dispatch timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// New creates a Gateway.
func New(a auth.Authorizer, n *normalize.Normalizer, p provider.Provider, opts ...Option) *Gateway {
	g := &Gateway{
		auth:       a,
		normalizer: n,
		provider:   p,
		timeout:    DefaultTimeout,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the configured delivery backend.
func (g *Gateway) Provider() provider.Provider {
	return g.provider
}

// Send authorizes req.Key, normalizes req under dialect d and dispatches
// the result. It returns the message id. Every error is a *mailerr.Error.
// Nothing is sent unless every step before dispatch succeeded.
func (g *Gateway) Send(ctx context.Context, d normalize.Dialect, req *normalize.Request) (string, error) {
	id, err := g.send(ctx, d, req)

	outcome := "sent"
	if err != nil {
		outcome = string(mailerr.CodeOf(err))
	}
	metrics.SendRequestsTotal.WithLabelValues(d.Name, outcome).Inc()

	return id, err
}

func (g *Gateway) send(ctx context.Context, d normalize.Dialect, req *normalize.Request) (string, error) {
	if err := g.authorize(ctx, req.Key); err != nil {
		return "", err
	}

	msg, err := g.normalizer.Normalize(d, req)
	if err != nil {
		g.log.InfoContext(ctx, "rejected send request",
			"dialect", d.Name,
			"code", mailerr.CodeOf(err),
			"error", err,
		)
		return "", err
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name := g.provider.Name()
	start := time.Now()
	id, err := g.provider.Send(sendCtx, msg)
	metrics.ProviderSendDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		if provider.IsRejected(err) {
			metrics.ProviderSendsTotal.WithLabelValues(name, "rejected").Inc()
			g.log.WarnContext(ctx, "provider rejected message", "provider", name, "error", err)
			return "", mailerr.Wrap(mailerr.CodeProviderRejected, err, "%s rejected the message", name)
		}
		metrics.ProviderSendsTotal.WithLabelValues(name, "failure").Inc()
		g.log.ErrorContext(ctx, "provider dispatch failed", "provider", name, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", mailerr.Wrap(mailerr.CodeProviderDispatchError, err, "%s did not answer within %s", name, g.timeout)
		}
		return "", mailerr.Wrap(mailerr.CodeProviderDispatchError, err, "dispatch via %s failed", name)
	}
	metrics.ProviderSendsTotal.WithLabelValues(name, "success").Inc()
	metrics.AttachmentsTotal.Add(float64(len(msg.Attachments)))

	if id == "" {
		id = uuid.NewString()
	}
	g.log.InfoContext(ctx, "message sent",
		"dialect", d.Name,
		"provider", name,
		"message_id", id,
		"from", msg.From.Address,
		"recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc),
		"attachments", len(msg.Attachments),
		"template", msg.Template,
	)
	return id, nil
}

func (g *Gateway) authorize(ctx context.Context, key string) error {
	if key == "" {
		metrics.AuthorizationFailuresTotal.WithLabelValues("denied").Inc()
		return mailerr.New(mailerr.CodeUnauthorized, "missing API key")
	}

	ok, err := g.auth.Authorize(ctx, key)
	if err != nil {
		metrics.AuthorizationFailuresTotal.WithLabelValues("unavailable").Inc()
		g.log.ErrorContext(ctx, "API key lookup failed", "error", err)
		return mailerr.Wrap(mailerr.CodeAuthorizationUnavailable, err, "could not verify API key")
	}
	if !ok {
		metrics.AuthorizationFailuresTotal.WithLabelValues("denied").Inc()
		return mailerr.New(mailerr.CodeUnauthorized, "API key is not allowed to send mail")
	}
	return nil
}
