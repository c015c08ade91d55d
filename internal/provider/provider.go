// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/mailgate/internal/email"
)

// Provider is the interface that email delivery backends must implement.
type Provider interface {
	// Send delivers msg and returns the provider-assigned message id.
	// A definitive refusal by the provider is reported as *RejectedError;
	// any other error is a transport or availability failure.
	Send(ctx context.Context, msg *email.Message) (string, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

// RejectedError reports that the provider refused the message itself
// (bad recipient, unverified sender, payload too large). Retrying will not
// help.
type RejectedError struct {
	Provider string
	Err      error
}

// Reject wraps err as a RejectedError from the named provider.
func Reject(provider string, err error) *RejectedError {
	return &RejectedError{Provider: provider, Err: err}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected message: %v", e.Provider, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err contains a RejectedError.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}

// DefaultBaseDelay is the initial delay for exponential backoff.
const DefaultBaseDelay = 1 * time.Second

// Retry re-runs a send after transient failures with exponential backoff.
// The zero value makes a single attempt.
type Retry struct {
	// Attempts is the number of retries after the first try.
	Attempts int
	// BaseDelay is doubled for every retry. Zero means DefaultBaseDelay.
	BaseDelay time.Duration
}

// Do calls send until it succeeds, returns a RejectedError, the retries
// are exhausted or ctx is done.
func (r Retry) Do(ctx context.Context, name string, send func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Attempts; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying provider request",
				"provider", name,
				"attempt", attempt,
				"max_retries", r.Attempts,
			)
			if err := sleepWithContext(ctx, r.backoffDelay(attempt)); err != nil {
				return "", fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		id, err := send(ctx)
		if err == nil {
			return id, nil
		}
		if IsRejected(err) {
			return "", err
		}

		lastErr = err
		slog.Warn("provider request failed",
			"provider", name,
			"attempt", attempt,
			"error", err,
		)
	}

	if r.Attempts == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("%s request failed after %d retries: %w", name, r.Attempts, lastErr)
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func (r Retry) backoffDelay(attempt int) time.Duration {
	delay := r.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
