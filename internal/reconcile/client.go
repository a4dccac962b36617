package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/noah-isme/pos-pricing/internal/resilience"
)

// Client posts reconciliation requests to the remote pricing service.
type Client struct {
	URL  string
	HTTP *resilience.HTTPClient
}

// Do submits one request and decodes the response. Any transport or
// decode failure is returned for the caller to degrade on.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.HTTP == nil || c.URL == "" {
		return nil, errors.New("reconcile: client not configured")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reconcile: unexpected status %s", resp.Status)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
