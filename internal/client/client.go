// Package client talks to the search gateway on behalf of the dispatcher.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"formsearch/internal/domain"
)

const (
	searchPath     = "/api/search"
	strategiesPath = "/api/strategies"
)

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("gateway %d: %s: %s", e.StatusCode, msg, e.Details)
	}
	return fmt.Sprintf("gateway %d: %s", e.StatusCode, msg)
}

// Unavailable reports whether the gateway said the backend is not running.
func (e *APIError) Unavailable() bool { return e.StatusCode == http.StatusServiceUnavailable }

// Config configures the gateway client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client is a minimal JSON client for the gateway API. It imposes no timeout
// of its own; callers bound requests through their context.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a gateway client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  hc,
	}
}

// Search runs one strategy for one query.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	var out domain.SearchResponse
	if err := c.do(ctx, http.MethodPost, searchPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Strategies fetches the backend's strategy catalogue.
func (c *Client) Strategies(ctx context.Context) ([]domain.StrategyInfo, error) {
	var out struct {
		Strategies []domain.StrategyInfo `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, strategiesPath, nil, &out); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
