package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// secretHeader carries the shared secret to the backend.
const secretHeader = "X-API-Secret"

var errMalformedResponse = errors.New("malformed backend response")

// Forwarder relays requests to the search backend with the shared secret
// attached. It never retries.
type Forwarder struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewForwarder creates a Forwarder. A nil client uses net/http defaults.
func NewForwarder(baseURL, secret string, client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	return &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  client,
	}
}

// Search posts body verbatim to {backend}/search and returns the backend's
// JSON reply.
func (f *Forwarder) Search(ctx context.Context, body []byte) ([]byte, error) {
	if !json.Valid(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	return f.do(ctx, http.MethodPost, "/search", body)
}

// Strategies fetches {backend}/strategies.
func (f *Forwarder) Strategies(ctx context.Context) ([]byte, error) {
	return f.do(ctx, http.MethodGet, "/strategies", nil)
}

func (f *Forwarder) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := f.baseURL + path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, f.secret)

	resp, err := f.client.Do(req)
	if err != nil {
		if isConnectionFailure(err) {
			return nil, &BackendUnreachableError{URL: f.baseURL, Err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &BackendStatusError{StatusCode: resp.StatusCode}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if !json.Valid(payload) {
		return nil, errMalformedResponse
	}
	return payload, nil
}
