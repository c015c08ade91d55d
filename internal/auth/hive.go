package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Hive asks the Hive permission service whether a token may send mail.
type Hive struct {
	baseURL string
	secret  string
	client  *http.Client
}

// HiveOption configures a Hive client.
type HiveOption func(*Hive)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(c *http.Client) HiveOption {
	return func(h *Hive) { h.client = c }
}

// NewHive creates a Hive authorizer rooted at baseURL, authenticating with
// the given bearer secret.
func NewHive(baseURL, secret string, opts ...HiveOption) *Hive {
	h := &Hive{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Authorize calls GET {base}/token/{key}/permission/send. The service
// answers with a bare "true" or "false".
func (h *Hive) Authorize(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	endpoint := fmt.Sprintf("%s/token/%s/permission/send", h.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create hive request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.secret)

	resp, err := h.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("hive lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, fmt.Errorf("read hive response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("hive returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	allowed, err := strconv.ParseBool(strings.TrimSpace(string(body)))
	if err != nil {
		return false, fmt.Errorf("parse hive response %q: %w", strings.TrimSpace(string(body)), err)
	}
	return allowed, nil
}
