package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/kanmap/internal/app"
)

// tokenHeader carries the module token on every bridge request.
const tokenHeader = "X-Module-Token"

// DefaultTimeout bounds one bridge round trip.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response body is kept for the error message.
const maxErrorBody = 512

// ErrNotConfigured reports a bridge call without an endpoint.
var ErrNotConfigured = errors.New("bridge endpoint is not configured")

// PersistenceError reports a failed round trip to the host store.
type PersistenceError struct {
	Op     string
	Status int
	Err    error
}

// Error returns a user-visible description of the failure.
func (e *PersistenceError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("board %s failed: host responded %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("board %s failed: host responded %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("board %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("board %s failed", e.Op)
	}
}

// Unwrap returns the underlying transport error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Options holds configuration for a Client.
type Options struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client saves and fetches the widget config against the host store endpoint.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient constructs a new value for this package.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: strings.TrimSpace(opts.Endpoint),
		token:    opts.Token,
		client:   client,
	}
}

// Endpoint returns the configured store URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Save PUTs cfg to the host store.
func (c *Client) Save(ctx context.Context, cfg app.WidgetConfig) error {
	if c.endpoint == "" {
		return &PersistenceError{Op: "save", Err: ErrNotConfigured}
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("encode widget config: %w", err)}
	}
	req, err := c.newRequest(ctx, http.MethodPut, bytes.NewReader(body))
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PersistenceError{Op: "save", Status: resp.StatusCode, Err: responseError(resp)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Fetch GETs the stored widget config. A 404 from the host reports found=false
// with no error so callers can fall back to local state.
func (c *Client) Fetch(ctx context.Context) (app.WidgetConfig, bool, error) {
	if c.endpoint == "" {
		return app.WidgetConfig{}, false, &PersistenceError{Op: "load", Err: ErrNotConfigured}
	}
	req, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return app.WidgetConfig{}, false, &PersistenceError{Op: "load", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return app.WidgetConfig{}, false, &PersistenceError{Op: "load", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return app.WidgetConfig{}, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return app.WidgetConfig{}, false, &PersistenceError{Op: "load", Status: resp.StatusCode, Err: responseError(resp)}
	}
	var cfg app.WidgetConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return app.WidgetConfig{}, false, &PersistenceError{Op: "load", Status: resp.StatusCode, Err: err}
	}
	return cfg, true, nil
}

func (c *Client) newRequest(ctx context.Context, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	return req, nil
}

// responseError summarizes a non-2xx response body, or returns nil when it is empty.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
