// Package proxy is the HTTP transport for the wallet-proxy service. Every
// call is bounded by the configured request timeout and carries a bearer
// token when one is supplied.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is a fully-read wallet-proxy response
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode wallet response: %w", err)
	}
	return nil
}

// Client talks to the wallet-proxy service
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a wallet-proxy client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// FromConfig creates a client from the loaded configuration.
func FromConfig() *Client {
	return NewClient(config.GetExternalURL("wallet"), config.GetWalletRequestTimeout())
}

// BaseURL returns the configured wallet service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a single request against the wallet service. The response body
// is always fully read so callers can inspect it regardless of status code.
func (c *Client) Do(ctx context.Context, method, endpoint, token string, body interface{}) (*Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("wallet service not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	logging.Debug("Wallet request", map[string]interface{}{
		"request_id": requestID,
		"method":     method,
		"endpoint":   endpoint,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Debug("Wallet request failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet response: %w", err)
	}

	logging.Debug("Wallet response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": resp.StatusCode,
		"body_length": len(respBody),
	})

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Get performs an unauthenticated or authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint, token string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, token, nil)
}

// Post performs a JSON POST.
func (c *Client) Post(ctx context.Context, endpoint, token string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, token, body)
}
