// Package chi exposes the proxy over HTTP: one invocation endpoint plus
// health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/searchproxy/internal/usecase/health"
)

// Dispatcher handles one proxy invocation payload.
type Dispatcher interface {
	Handle(ctx context.Context, payload json.RawMessage) json.RawMessage
}

// Server is the HTTP API server.
type Server struct {
	proxy       Dispatcher
	health      *healthuc.Service
	maxBodySize int64
	logger      *zap.Logger
}

// NewServer creates an HTTP API server. maxBodySize caps the invocation
// payload in bytes.
func NewServer(
	proxy Dispatcher,
	health *healthuc.Service,
	maxBodySize int64,
	logger *zap.Logger,
) *Server {
	return &Server{
		proxy:       proxy,
		health:      health,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Invoke handles POST /v1/proxy. The dispatcher communicates failures in the
// body, so the HTTP status is 200 whenever a payload was read at all.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	out := s.proxy.Handle(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
