// Package graph implements a Provider that sends emails via the Microsoft Graph API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/provider"
)

const defaultGraphURL = "https://graph.microsoft.com/v1.0"

// Config holds the configuration for creating a Provider.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Mailbox is the user the message is sent as. When empty, the
	// message's From address is used.
	Mailbox string
	Retry   provider.Retry
}

// Provider sends emails via the Microsoft Graph API using OAuth2 client
// credentials.
type Provider struct {
	mailbox    string
	graphURL   string
	httpClient *http.Client
	retry      provider.Retry
}

// New creates a Provider with the given configuration.
func New(cfg Config) *Provider {
	return newWithOverrides(cfg, defaultGraphURL, tokenURL(cfg.TenantID), &http.Client{Timeout: 30 * time.Second})
}

// newWithOverrides creates a Provider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg Config, graphURL, tokenEndpoint string, base *http.Client) *Provider {
	return &Provider{
		mailbox:    cfg.Mailbox,
		graphURL:   graphURL,
		httpClient: authorizedClient(tokenEndpoint, cfg.ClientID, cfg.ClientSecret, base),
		retry:      cfg.Retry,
	}
}

// Send delivers msg through /users/{mailbox}/sendMail. Graph does not
// return a message id, so the returned id is empty.
func (g *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	mailbox := g.mailbox
	if mailbox == "" {
		mailbox = msg.From.Address
	}
	endpoint := fmt.Sprintf("%s/users/%s/sendMail", g.graphURL, url.PathEscape(mailbox))

	return g.retry.Do(ctx, g.Name(), func(ctx context.Context) (string, error) {
		return "", g.doSendRequest(ctx, endpoint, bodyJSON)
	})
}

// Name returns the provider name.
func (g *Provider) Name() string {
	return "msgraph"
}

// doSendRequest performs a single HTTP request to the sendMail endpoint.
func (g *Provider) doSendRequest(ctx context.Context, endpoint string, bodyJSON []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("failed to get access token: %w", err)
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := string(body)
	var graphErr graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErr); jsonErr == nil && graphErr.Error.Message != "" {
		message = graphErr.Error.Message
	}

	return classifyError(resp.StatusCode, message)
}

// sendError is a non-success response from the sendMail endpoint.
type sendError struct {
	statusCode int
	message    string
}

func (e *sendError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError turns refusals of the message into rejections. Auth
// failures, throttling and server errors stay transient.
func classifyError(statusCode int, message string) error {
	err := &sendError{statusCode: statusCode, message: message}

	switch {
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return err
	case statusCode >= 400:
		return provider.Reject("msgraph", err)
	default:
		return err
	}
}
