// Package opensearch executes signed HTTP calls against the search backend.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/metrics"
)

// signer is the consumer interface for request signing.
type signer interface {
	Sign(ctx context.Context, req *http.Request, body []byte, service, region string) error
}

// Gateway performs exactly one signed HTTP call per Execute. It never retries
// internally; retry budgets belong to the call sites.
type Gateway struct {
	httpClient *http.Client
	signer     signer
	logger     *zap.Logger
}

// New creates a Gateway. httpClient may be nil, in which case a default
// client without its own timeout is used (the invocation deadline arrives
// through the context).
func New(httpClient *http.Client, s signer, logger *zap.Logger) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Gateway{httpClient: httpClient, signer: s, logger: logger}
}

// Execute signs and sends one request to the search backend and returns the
// parsed JSON body together with the HTTP status. Non-2xx responses are not
// an error at this layer; the caller decides whether the body is meaningful.
func (g *Gateway) Execute(
	ctx context.Context, cfg domain.SearchConfig, method, path string, body []byte,
) (*domain.BackendResponse, error) {
	target := strings.TrimRight(cfg.Endpoint, "/") + path

	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %v: %w", err, domain.ErrValidation)
	}

	if err := g.signer.Sign(ctx, req, body, cfg.Service, cfg.Region); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := g.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return nil, fmt.Errorf("backend call %s %s: %v: %w", method, path, err, domain.ErrUpstream)
	}
	defer func() { _ = res.Body.Close() }()

	metrics.BackendRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(method, strconv.Itoa(res.StatusCode)).Inc()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %v: %w", err, domain.ErrUpstream)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("backend returned non-JSON body (status %d): %w",
			res.StatusCode, domain.ErrSerialization)
	}

	if res.StatusCode >= 300 {
		g.logger.Warn("backend returned non-2xx status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
	}

	return &domain.BackendResponse{Status: res.StatusCode, Body: data}, nil
}
