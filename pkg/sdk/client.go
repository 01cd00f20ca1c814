// Package searchproxy is a thin HTTP client for the search proxy service.
package searchproxy

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
)

const invokePath = "/v1/proxy"

// Client is the searchproxy SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// New creates a Client talking to the proxy at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("searchproxy: base URL required")
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: 90 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cfg.httpClient,
		apiKey:     cfg.apiKey,
	}, nil
}

// Ask runs the retrieval pipeline for a question.
func (c *Client) Ask(ctx context.Context, question string, opts *AskOptions) (AskResult, error) {
	payload := map[string]any{
		"operation": "ask",
		"question":  question,
	}
	if opts != nil {
		if opts.GenerateAnswer {
			payload["generateAnswer"] = true
		}
		if opts.TopK > 0 {
			payload["topK"] = opts.TopK
		}
		if len(opts.Config) > 0 {
			payload["searchConfig"] = opts.Config
		}
	}

	raw, err := c.Invoke(ctx, payload)
	if err != nil {
		return AskResult{}, err
	}

	var result AskResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return AskResult{}, fmt.Errorf("searchproxy: decode ask response: %w", err)
	}
	return result, nil
}

// RawSearch passes an arbitrary query through to the search backend and
// returns its JSON verbatim.
func (c *Client) RawSearch(ctx context.Context, req RawSearchRequest) (json.RawMessage, error) {
	payload := map[string]any{
		"operation": "rawSearch",
	}
	if req.Method != "" {
		payload["method"] = req.Method
	}
	if req.Index != "" {
		payload["index"] = req.Index
	}
	if req.Path != "" {
		payload["path"] = req.Path
	}
	if len(req.Body) > 0 {
		payload["body"] = req.Body
	}
	if len(req.Config) > 0 {
		payload["searchConfig"] = req.Config
	}

	return c.Invoke(ctx, payload)
}

// Invoke sends one raw invocation payload and returns the proxy's JSON
// response. A body-level `{"error": ...}` is returned as an *APIError.
func (c *Client) Invoke(ctx context.Context, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("searchproxy: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+invokePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("searchproxy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searchproxy: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("searchproxy: read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, transportError(res.StatusCode, data)
	}

	if apiErr := extractAPIError(data); apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// extractAPIError returns a non-nil *APIError when the body carries one.
func extractAPIError(data []byte) *APIError {
	var e APIError
	if err := json.Unmarshal(data, &e); err != nil {
		return nil
	}
	if e.Message == "" {
		return nil
	}
	return &e
}

func transportError(status int, data []byte) error {
	if apiErr := extractAPIError(data); apiErr != nil {
		return fmt.Errorf("searchproxy: status %d: %w", status, apiErr)
	}
	return fmt.Errorf("searchproxy: unexpected status %d", status)
}
