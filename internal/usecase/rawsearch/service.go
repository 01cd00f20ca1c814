// Package rawsearch passes an arbitrary signed query through to the search
// backend and returns its JSON verbatim.
package rawsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// Gateway executes one signed call against the search backend.
type Gateway interface {
	Execute(
		ctx context.Context, cfg domain.SearchConfig, method, path string, body []byte,
	) (*domain.BackendResponse, error)
}

// Service executes passthrough queries.
type Service struct {
	gateway Gateway
	logger  *zap.Logger
}

// New creates a rawsearch service.
func New(gateway Gateway, logger *zap.Logger) *Service {
	return &Service{gateway: gateway, logger: logger}
}

// Execute signs and sends the passthrough request and returns the backend's
// JSON body verbatim. A non-2xx body is returned as-is: the backend's error
// payload is itself the meaningful response for a passthrough caller.
func (s *Service) Execute(
	ctx context.Context, cfg domain.SearchConfig, req *domain.RawSearchRequest,
) (json.RawMessage, error) {
	method := req.EffectiveMethod()
	path := req.EffectivePath(cfg)
	if path == "" {
		return nil, fmt.Errorf("either path or index is required: %w", domain.ErrValidation)
	}
	body := req.EffectiveBody()
	// A bodiless POST gets a match_all query; other verbs stay bodiless so a
	// plain GET of a document path signs an empty payload.
	if body == nil && method == http.MethodPost {
		body = domain.DefaultQuery
	}

	res, err := s.gateway.Execute(ctx, cfg, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("raw search: %w", err)
	}

	if !res.OK() {
		s.logger.Warn("raw search returned non-2xx status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.Status),
		)
	}

	return json.RawMessage(res.Body), nil
}
