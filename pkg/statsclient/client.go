// Package statsclient is an HTTP client for the statshub API.
package statsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("statshub: HTTP %d", e.StatusCode)
	}

	return fmt.Sprintf("statshub: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	// APIKey is sent as a bearer token on admin requests.
	APIKey   string
	Timeout  time.Duration
	RetryMax int
}

// Client talks to a running statshub API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient creates a client. Only transport errors and 503 responses are retried,
// so a refresh that failed upstream is never repeated.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.CheckRetry = retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return resp.StatusCode == http.StatusServiceUnavailable, nil
}

// Status returns the state of the snapshot the server currently serves.
func (c *Client) Status(ctx context.Context) (SnapshotStatus, error) {
	var status SnapshotStatus
	err := c.do(ctx, http.MethodGet, "/api/snapshot", false, &status)

	return status, err
}

// Refresh forces the server to fetch a new snapshot from upstream.
func (c *Client) Refresh(ctx context.Context) (SnapshotStatus, error) {
	var status SnapshotStatus
	err := c.do(ctx, http.MethodPost, "/v1/snapshot/refresh", true, &status)

	return status, err
}

func (c *Client) do(ctx context.Context, method, path string, admin bool, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if admin && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// errorMessage extracts the message from either error body the API emits:
// problem details on admin routes, {"error": ...} on public ones.
func errorMessage(body []byte) string {
	var payload struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	switch {
	case payload.Detail != "":
		return payload.Detail
	case payload.Error != "":
		return payload.Error
	default:
		return payload.Title
	}
}
