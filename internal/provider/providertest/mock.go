// Package providertest provides a testify mock of provider.Provider.
package providertest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shineum/mailgate/internal/email"
)

// Provider is a mock delivery backend.
type Provider struct {
	mock.Mock
}

// Send records the call and returns the configured id and error.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	args := p.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// Name returns "mock".
func (p *Provider) Name() string {
	return "mock"
}
