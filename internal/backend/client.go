// Package backend is the HTTP client for the remote commerce API, which
// owns all authoritative state: catalog, synced carts, orders, users, and
// the admin surface. The gateway never infers business state on its own;
// it relays what the backend says.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// ErrUnavailable is returned when the circuit breaker is open and calls
// fail fast instead of waiting out another timeout.
var ErrUnavailable = errors.New("commerce api unavailable")

// APIError is a structured failure relayed from the commerce API.
// 4xx statuses carry validation or authorization failures; 5xx statuses
// are backend faults and count towards tripping the circuit breaker.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce api: %s (status %d)", e.Message, e.Status)
}

// AsAPIError unwraps err into an APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 from the commerce API.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the commerce API.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// Config holds the client's connection settings.
type Config struct {
	// BaseURL is the commerce API root, e.g. https://api.example.com/v1.
	BaseURL string
	// Timeout bounds every request; calls fail after this duration
	// rather than hanging indefinitely. Defaults to 10s.
	Timeout time.Duration
}

type httpResult struct {
	status int
	body   []byte
}

// Client is a commerce API client with a fixed request timeout, OTel
// transport instrumentation, and a circuit breaker guarding the backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*httpResult]
	lg      *zap.Logger
}

// New creates a Client for the given base URL.
func New(cfg Config, lg *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	lg = lg.Named("backend")
	breaker := gobreaker.NewCircuitBreaker[*httpResult](gobreaker.Settings{
		Name:     "commerce-api",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		lg:      lg,
	}, nil
}

// Ping probes the commerce API's health endpoint; used as a readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil, nil)
}

// do performs one API call: marshal in (when non-nil), attach the bearer
// token (when non-empty), execute through the breaker, and unmarshal the
// response into out (when non-nil). Transport errors and 5xx responses
// count as breaker failures; 4xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.breaker.Execute(func() (*httpResult, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "do request")
		}
		defer func() { _ = resp.Body.Close() }()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, errors.Wrap(err, "read response")
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, newAPIError(resp.StatusCode, b)
		}
		return &httpResult{status: resp.StatusCode, body: b}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}

	if res.status >= http.StatusBadRequest {
		return newAPIError(res.status, res.body)
	}

	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return errors.Wrapf(err, "decode %s %s response", method, path)
		}
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	var wire struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &wire)

	msg := wire.Message
	if msg == "" {
		msg = wire.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: wire.Code, Message: msg}
}
