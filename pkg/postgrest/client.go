// Package postgrest is a small read-only client for PostgREST-style tabular
// HTTP APIs (as exposed by Supabase under /rest/v1).
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrDecode is wrapped by errors caused by a response body that is not a JSON
// array of objects.
var ErrDecode = errors.New("postgrest: invalid response body")

// maxErrorBody bounds how much of a failed response body is kept in a StatusError.
const maxErrorBody = 1024

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL is the service root (e.g. "https://xyz.supabase.co"). /rest/v1 is added automatically.
	BaseURL string
	// APIKey is sent both as the apikey header and as a bearer token.
	APIKey string
	// Timeout bounds each request (default: 30 seconds)
	Timeout time.Duration
	// RetryMax is the number of retries after a failed attempt (default: 0)
	RetryMax int
	// Transport overrides the underlying round tripper (tests)
	Transport http.RoundTripper
}

// Client reads rows from a PostgREST endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient creates a client. It does not perform any I/O.
func NewClient(opts ClientOptions) *Client {
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/rest/v1")

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil // Disable logging by default

	transport := opts.Transport
	if transport == nil {
		transport = retryClient.HTTPClient.Transport
	}
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(transport)

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

// Order is one term of the order query parameter.
type Order struct {
	Column     string
	Descending bool
	NullsLast  bool
}

// String renders the term as column.direction[.nullslast].
func (o Order) String() string {
	dir := "asc"
	if o.Descending {
		dir = "desc"
	}

	s := o.Column + "." + dir
	if o.NullsLast {
		s += ".nullslast"
	}
	return s
}

// SelectOptions describes one read of a table
type SelectOptions struct {
	// Columns is the explicit projection. It must not be empty.
	Columns []string
	Order   []Order
}

// Query returns the encoded query string for opts.
func (opts SelectOptions) Query() url.Values {
	params := url.Values{}
	params.Set("select", strings.Join(opts.Columns, ","))

	if len(opts.Order) > 0 {
		terms := make([]string, len(opts.Order))
		for i, o := range opts.Order {
			terms[i] = o.String()
		}
		params.Set("order", strings.Join(terms, ","))
	}

	return params
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("postgrest: %s request failed with status %d: %s", e.Table, e.StatusCode, e.Body)
}

// TableURL returns the URL of a table endpoint.
func (c *Client) TableURL(table string) (*url.URL, error) {
	if c.baseURL == "" {
		return nil, errors.New("postgrest: base URL is required")
	}

	u, err := url.Parse(c.baseURL + "/rest/v1/" + url.PathEscape(table))
	if err != nil {
		return nil, fmt.Errorf("postgrest: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("postgrest: invalid base URL %q", c.baseURL)
	}

	return u, nil
}

// Select reads the rows of table and decodes the JSON array into dst, which
// must be a pointer to a slice. Numbers are decoded as json.Number when dst
// holds untyped values.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions, dst any) error {
	if len(opts.Columns) == 0 {
		return fmt.Errorf("postgrest: explicit columns are required for %s", table)
	}

	u, err := c.TableURL(table)
	if err != nil {
		return err
	}
	u.RawQuery = opts.Query().Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", table, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			slog.Error("Failed to read error response body", "error", err)
		}
		return &StatusError{Table: table, StatusCode: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, table, err)
	}

	return nil
}
