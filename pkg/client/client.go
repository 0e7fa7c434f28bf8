// Package client is the HTTP transport to the luthen API. It builds
// requests, attaches credentials and normalizes every outcome into an
// api.Result.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/luthenlog/luthen/pkg/api"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	// maxBodySize caps how much of a response body is read.
	maxBodySize = 10 << 20
)

// Config holds transport settings.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com.
	BaseURL string
	// Timeout bounds each attempt. Zero means 30s.
	Timeout time.Duration
	// RetryAttempts is the number of attempts for GET requests. Values
	// below 2 disable retries.
	RetryAttempts int
	// RetryDelay is the base delay between attempts. Zero means 500ms.
	RetryDelay time.Duration
	// RateLimit caps requests per second. Zero disables the limiter.
	RateLimit float64
	// Registerer receives the transport metrics. Nil disables them.
	Registerer prometheus.Registerer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// HTTPClient overrides the underlying client. Its transport is wrapped
	// with metrics when Registerer is set.
	HTTPClient *http.Client
}

// Client sends requests to the API. It holds no per-user state and is safe
// for concurrent use.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

// Request describes one API call.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. /public/fund.
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body    any
	Session api.Session
}

// StatusError is returned by Do when the API answers with a non-2xx status.
type StatusError struct {
	Code      int
	Body      []byte
	Method    string
	Path      string
	RequestID string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// NetworkError means the request settled without a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "no response: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = defaultTimeout
	}
	if cfg.Registerer != nil {
		rt, err := instrument(cfg.Registerer, httpClient.Transport)
		if err != nil {
			return nil, fmt.Errorf("registering transport metrics: %w", err)
		}
		httpClient.Transport = rt
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    base,
		http:       httpClient,
		attempts:   1,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With("component", "client"),
	}
	if cfg.RetryAttempts > 1 {
		c.attempts = uint(cfg.RetryAttempts)
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if cfg.RateLimit > 0 {
		burst := max(1, int(cfg.RateLimit))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Do performs req and returns the response body. Non-2xx answers return a
// *StatusError and missing responses a *NetworkError. Only GET requests are
// retried.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = b
	}

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	requestID := uuid.NewString()

	attempts := uint(1)
	if req.Method == http.MethodGet {
		attempts = c.attempts
	}

	var body []byte
	err := retry.Do(
		func() error {
			b, err := c.roundTrip(ctx, req, target.String(), payload, requestID)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= attempts {
				return
			}
			c.logger.Warn("retrying request", "request_id", requestID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request, target string, payload []byte, requestID string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Err: err}
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Session.Bearer() {
		tok := &oauth2.Token{AccessToken: req.Session.Token, TokenType: "Bearer"}
		tok.SetAuthHeader(httpReq)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logger.Debug("request settled",
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Code:      resp.StatusCode,
			Body:      body,
			Method:    req.Method,
			Path:      req.Path,
			RequestID: requestID,
		}
	}
	return body, nil
}

// retryable reports whether a failed attempt may succeed on its own.
// Cancellation of the caller's context is handled by retry.Context.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Send performs req and normalizes the outcome. It never panics and never
// returns an error: failures become a failed Result.
func Send[T any](ctx context.Context, c *Client, req Request) api.Result[T] {
	body, err := c.Do(ctx, req)
	if err != nil {
		return HandleError[T](err)
	}
	return HandleResponse[T](body)
}
