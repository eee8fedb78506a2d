package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/version"
)

// Option configures a provider.
type Option func(*apiClient)

// WithLogger logs retries and failures through l.
func WithLogger(l *log.Logger) Option {
	return func(c *apiClient) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) { c.http.HTTPClient = hc }
}

// apiClient posts JSON to a provider API, retrying 429 and 5xx responses.
type apiClient struct {
	name    string
	baseURL string
	headers map[string]string
	http    *retryablehttp.Client
	logger  *log.Logger
}

func newAPIClient(name, baseURL string, cfg Config, headers map[string]string, opts []Option) *apiClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &apiClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		http:    rc,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = retryablehttp.LeveledLogger(c.logger)
	return c
}

// post sends body to path and decodes a 200 response into out. errMessage
// extracts the provider's error text from a failed response body.
func (c *apiClient) post(ctx context.Context, path string, body, out any, errMessage func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if resp == nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return berrors.Wrap(berrors.ErrCodeGeneratorTimeout, c.name+" request timed out", err)
		}
		return berrors.Wrap(berrors.ErrCodeGeneratorAPI, "send request to "+c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return berrors.Wrap(berrors.ErrCodeGeneratorAPI, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return berrors.NewGeneratorAuthError(c.name)
	case resp.StatusCode != http.StatusOK:
		msg := errMessage(data)
		if msg == "" {
			msg = string(data)
		}
		c.logger.Debug("provider request failed", "provider", c.name, "status", resp.StatusCode)
		return berrors.New(berrors.ErrCodeGeneratorAPI, fmt.Sprintf("%s error (HTTP %d): %s", c.name, resp.StatusCode, msg))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return berrors.Wrap(berrors.ErrCodeGeneratorAPI, "unmarshal "+c.name+" response", err)
	}
	return nil
}

func (c *apiClient) close() {
	c.http.HTTPClient.CloseIdleConnections()
}
