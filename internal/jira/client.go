// Package jira is the HTTP transport to a Jira Cloud compatible tracker.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/version"
)

// maxErrorBody caps how much of a failed response is kept on TransportError.
const maxErrorBody = 4 << 10

// TransportError is returned for any non-2xx response after retries.
type TransportError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Code implements errors.Coder.
func (e *TransportError) Code() berrors.ErrorCode {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return berrors.ErrCodeTrackerAuth
	case http.StatusTooManyRequests:
		return berrors.ErrCodeTrackerRateLim
	}
	switch {
	case e.Status >= 400 && e.Status < 500:
		return berrors.ErrCodeTrackerReject
	default:
		return berrors.ErrCodeTransport
	}
}

// Client talks to the tracker's REST API. Reads are retried with exponential
// backoff; writes are sent once.
type Client struct {
	cfg     Config
	retry   *retryablehttp.Client
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger. Retry attempts are logged through it.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records per-request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.retry.HTTPClient = hc }
}

// NewClient creates a client. cfg is assumed valid.
func NewClient(cfg Config, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	// Hand the final response back so its status and body reach TransportError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		retry:   rc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = retryablehttp.LeveledLogger(c.logger)
	return c
}

// BaseURL returns the tracker root URL.
func (c *Client) BaseURL() string {
	return c.cfg.baseURL()
}

// Get fetches path with query and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := c.cfg.baseURL() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req.Request)

	return c.do(ctx, req.Request, func(*http.Request) (*http.Response, error) {
		return c.retry.Do(req)
	})
}

// Post sends body as JSON to path exactly once.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.baseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req, c.retry.HTTPClient.Do)
}

func (c *Client) decorate(req *http.Request) {
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
}

func (c *Client) do(ctx context.Context, req *http.Request, send func(*http.Request) (*http.Response, error)) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := send(req)
	// After the last retry the passthrough handler returns the final response
	// together with the policy error; the response is what callers need.
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response")
		}
		c.metrics.RecordTrackerRequest(req.Method, 0, time.Since(start))
		return nil, berrors.Wrap(berrors.ErrCodeTransport,
			fmt.Sprintf("%s %s", req.Method, req.URL.Redacted()), err)
	}
	defer resp.Body.Close()
	c.metrics.RecordTrackerRequest(req.Method, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeTransport, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(data)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		terr := &TransportError{
			Method: req.Method,
			URL:    req.URL.Redacted(),
			Status: resp.StatusCode,
			Body:   body,
		}
		c.logger.WithError(terr).Debug("tracker request failed")
		if terr.Code() == berrors.ErrCodeTrackerAuth {
			return nil, berrors.NewTrackerAuthError(c.cfg.baseURL(), terr)
		}
		return nil, terr
	}

	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(data), nil
}
