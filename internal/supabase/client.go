package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client talks to the Supabase PostgREST endpoint with the service
// role key. Row-level security is bypassed; this client must never be
// exposed to untrusted callers.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	log        *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests)
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a PostgREST client for the project at baseURL
func NewClient(baseURL, serviceKey string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// restURL builds a PostgREST request URL for a table plus query filters
func (c *Client) restURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one PostgREST request and decodes the JSON response rows
// into out (a pointer to a slice) when out is non-nil.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return model.NewRequestError("supabase", method, 0, "encode request body", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return model.NewRequestError("supabase", method, 0, "build request", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewRequestError("supabase", method, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewRequestError("supabase", method, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return model.NewRequestError("supabase", method, resp.StatusCode, fmt.Sprintf("postgrest error: %s", msg), nil)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return model.NewRequestError("supabase", method, resp.StatusCode, "decode response", err)
		}
	}
	return nil
}

// selectRows fetches rows matching the query into out
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, c.restURL(table, query), nil, out, nil)
}

// insertRow inserts one row and returns the stored representation in out
func (c *Client) insertRow(ctx context.Context, table string, row any, out any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	return c.do(ctx, http.MethodPost, c.restURL(table, nil), row, out, headers)
}

// upsertRow inserts or updates on conflict and returns the stored row
func (c *Client) upsertRow(ctx context.Context, table, conflictCols string, row any, out any) error {
	query := url.Values{"on_conflict": {conflictCols}}
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}
	return c.do(ctx, http.MethodPost, c.restURL(table, query), row, out, headers)
}

// updateRows patches every row matching the query
func (c *Client) updateRows(ctx context.Context, table string, query url.Values, patch any, out any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	return c.do(ctx, http.MethodPatch, c.restURL(table, query), patch, out, headers)
}
