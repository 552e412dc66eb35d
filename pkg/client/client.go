// Package client is an HTTP client for the echo service API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-echo-server/pkg/envelope"
)

// ErrNotFound is returned when the server has no route for the request
var ErrNotFound = errors.New("route not found")

// APIError is a non-2xx response carrying an envelope
type APIError struct {
	StatusCode int
	Envelope   envelope.Output
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): code %d: %s", e.StatusCode, e.Envelope.Code, e.Envelope.Description)
}

// Client wraps an HTTP client for echo API calls
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client for baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithTimeout bounds each call to d. Zero leaves only the caller's context
// in charge.
func (c *Client) WithTimeout(d time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = d
	c.httpClient = &hc
	return c
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Status calls GET /status
func (c *Client) Status(ctx context.Context) (*envelope.Output, error) {
	return c.do(ctx, http.MethodGet, "/status", nil)
}

// Get calls GET /data/v1/{name}
func (c *Client) Get(ctx context.Context, name string) (*envelope.Output, error) {
	return c.do(ctx, http.MethodGet, dataPath(name), nil)
}

// Post calls POST /data/v1/{name} with data
func (c *Client) Post(ctx context.Context, name, data string) (*envelope.Output, error) {
	return c.Mutate(ctx, http.MethodPost, name, data)
}

// Put calls PUT /data/v1/{name} with data
func (c *Client) Put(ctx context.Context, name, data string) (*envelope.Output, error) {
	return c.Mutate(ctx, http.MethodPut, name, data)
}

// Delete calls DELETE /data/v1/{name} with data
func (c *Client) Delete(ctx context.Context, name, data string) (*envelope.Output, error) {
	return c.Mutate(ctx, http.MethodDelete, name, data)
}

// Mutate sends an envelope.Input to /data/v1/{name} with the given method
func (c *Client) Mutate(ctx context.Context, method, name, data string) (*envelope.Output, error) {
	return c.do(ctx, method, dataPath(name), &envelope.Input{Data: data})
}

func dataPath(name string) string {
	return "/data/v1/" + url.PathEscape(name)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope.Output, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && len(respBody) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}

	var env envelope.Output
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		return &env, &APIError{StatusCode: resp.StatusCode, Envelope: env}
	}

	return &env, nil
}
