package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rewardsreceipts/pkg/config"
	errs "rewardsreceipts/pkg/errors"
	"rewardsreceipts/pkg/logger"
	"rewardsreceipts/pkg/ratelimit"
)

// ErrMissingToken is returned when a client is built without a bearer token
var ErrMissingToken = errors.New("bearer token is required")

// Client talks to the rewards backend. It sends every request exactly once;
// retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	endpoints  Endpoints
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithEndpoints overrides the backend URLs
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// WithLimiter paces every request through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHeader sets or replaces one request header
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// NewClient creates a client authenticated with token
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{
			"Authorization": "Bearer " + token,
			"client_id":     ClientID,
			"api-version":   APIVersion,
			"User-Agent":    DefaultUserAgent,
			"Content-Type":  ContentType,
		},
		endpoints: DefaultEndpoints(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	return c, nil
}

// NewClientFromConfig creates a client from the api, download and
// rate_limit configuration sections
func NewClientFromConfig(cfg *config.Config, token string, log logger.Logger) (*Client, error) {
	return NewClient(token,
		WithTimeout(cfg.Download.Timeout),
		WithEndpoints(Endpoints{
			GraphQL:  cfg.API.GraphQLURL,
			Details:  cfg.API.DetailsURL,
			Download: cfg.API.DownloadURL,
		}),
		WithHeader("client_id", cfg.API.ClientID),
		WithHeader("api-version", cfg.API.APIVersion),
		WithHeader("User-Agent", cfg.API.UserAgent),
		WithLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)),
		WithLogger(log),
	)
}

// Endpoints returns the URLs the client talks to
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// post sends payload as JSON to url and returns the full response body
// and status code. Only transport failures are errors here.
func (c *Client) post(ctx context.Context, url string, payload interface{}) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, errs.NewParseError("failed to encode request body", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, errs.NewNetworkError("request pacing interrupted", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errs.NewNetworkError(fmt.Sprintf("failed to create request for %s", url), err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, 0, errs.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errs.NewNetworkError("failed to read response body", err)
	}

	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))
	return data, resp.StatusCode, nil
}

// postEnvelope posts payload and decodes the envelope's data as T. The
// status code is ignored because the backend reports failures in the
// envelope itself.
func postEnvelope[T any](ctx context.Context, c *Client, url string, payload interface{}) (Sourced[T], error) {
	body, _, err := c.post(ctx, url, payload)
	if err != nil {
		return Sourced[T]{}, err
	}
	return Decode[T](body)
}
