// Package cartctl is the HTTP client behind the cartctl command line tool.
package cartctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/service"
)

// APIError is a non-2xx answer that carried no decodable result.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the agent at baseURL, e.g. http://127.0.0.1:8000.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Status(ctx context.Context) (service.StatusReport, error) {
	var report service.StatusReport
	err := c.do(ctx, http.MethodGet, "/status", nil, &report)
	return report, err
}

// Command sends free text or a device token. A failed dispatch is returned
// as a Result with status "failed", not as an error.
func (c *Client) Command(ctx context.Context, text string, skip bool) (service.Result, error) {
	var res service.Result
	body := map[string]any{"text": text, "skip": skip}
	err := c.do(ctx, http.MethodPost, "/command", body, &res)
	return res, err
}

func (c *Client) Emergency(ctx context.Context) (service.Result, error) {
	var res service.Result
	err := c.do(ctx, http.MethodPost, "/emergency", nil, &res)
	return res, err
}

// Reset restores the agent's start-up vehicle status.
func (c *Client) Reset(ctx context.Context) (service.StatusReport, error) {
	var report service.StatusReport
	err := c.do(ctx, http.MethodPost, "/reset", nil, &report)
	return report, err
}

func (c *Client) SetFuel(ctx context.Context, level int) (service.FuelResult, error) {
	var res struct {
		service.FuelResult
		Error string `json:"error,omitempty"`
	}
	if err := c.do(ctx, http.MethodPost, "/fuel", map[string]int{"level": level}, &res); err != nil {
		return res.FuelResult, err
	}
	if res.Error != "" {
		return res.FuelResult, &APIError{StatusCode: http.StatusServiceUnavailable, Message: res.Error}
	}
	return res.FuelResult, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	// 503 with a result body is a dispatch failure, not a transport error.
	if resp.StatusCode >= 300 && !(resp.StatusCode == http.StatusServiceUnavailable && decodes(data, out)) {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodes(data []byte, out any) bool {
	return json.Unmarshal(data, out) == nil
}

func errorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
