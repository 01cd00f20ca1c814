// Package proxy dispatches inbound operations and renders every failure into
// the uniform error payload. Nothing escapes its boundary.
package proxy

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/metrics"
)

// internalErrorBody is the last-resort payload if even error marshaling fails.
const internalErrorBody = `{"error":"internal proxy error","kind":"internal"}`

// Service is the proxy entry point.
type Service struct {
	env     domain.SearchConfig
	raw     RawSearcher
	ask     Pipeline
	answer  Synthesizer
	timeout time.Duration
	logger  *zap.Logger
}

// New creates the dispatcher. env is the deployment configuration layer;
// timeout bounds one whole invocation.
func New(
	env domain.SearchConfig,
	raw RawSearcher,
	ask Pipeline,
	answer Synthesizer,
	timeout time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		env:     env,
		raw:     raw,
		ask:     ask,
		answer:  answer,
		timeout: timeout,
		logger:  logger,
	}
}

// Handle processes one invocation and always returns a well-formed JSON
// payload: success, or `{"error": ...}`. It never panics out and never
// returns an error to the transport.
func (s *Service) Handle(ctx context.Context, payload json.RawMessage) (out json.RawMessage) {
	op := "unknown"
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in proxy dispatcher",
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			out = json.RawMessage(internalErrorBody)
			metrics.ProxyRequestsTotal.WithLabelValues(op, "error").Inc()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := domain.ParseRequest(payload)
	if err != nil {
		metrics.ProxyRequestsTotal.WithLabelValues(op, "error").Inc()
		return s.errorJSON(err)
	}
	op = string(req.Op())

	out, err = s.dispatch(ctx, req)
	if err != nil {
		s.logger.Warn("proxy operation failed",
			zap.String("operation", op),
			zap.String("kind", domain.ErrorKind(err)),
			zap.Error(err),
		)
		metrics.ProxyRequestsTotal.WithLabelValues(op, "error").Inc()
		return s.errorJSON(err)
	}

	metrics.ProxyRequestsTotal.WithLabelValues(op, "success").Inc()
	return out
}

func (s *Service) dispatch(ctx context.Context, req domain.Request) (json.RawMessage, error) {
	switch r := req.(type) {
	case *domain.TestRequest:
		return s.handleTest()
	case *domain.RawSearchRequest:
		return s.handleRawSearch(ctx, r)
	case *domain.AskRequest:
		return s.handleAsk(ctx, r)
	default:
		return nil, domain.ErrUnsupportedOperation
	}
}

func (s *Service) handleTest() (json.RawMessage, error) {
	cfg := domain.Resolve(s.env, nil)
	return s.marshal(domain.TestResponse{
		Message:   "search proxy is working",
		Timestamp: time.Now().UTC(),
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
	})
}

func (s *Service) handleRawSearch(
	ctx context.Context, req *domain.RawSearchRequest,
) (json.RawMessage, error) {
	cfg := domain.Resolve(s.env, req.Config)
	if err := cfg.ValidateFor(domain.OpRawSearch, false); err != nil {
		return nil, err
	}
	return s.raw.Execute(ctx, cfg, req)
}

func (s *Service) handleAsk(
	ctx context.Context, req *domain.AskRequest,
) (json.RawMessage, error) {
	cfg := domain.Resolve(s.env, req.Config)
	if err := cfg.ValidateFor(domain.OpAsk, req.GenerateAnswer); err != nil {
		return nil, err
	}

	chunks, err := s.ask.Search(ctx, cfg, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}

	if !req.GenerateAnswer {
		return s.marshal(domain.AskResponse{Chunks: chunks})
	}

	// An answer failure discards the chunks: a partial result must not be
	// mistaken for a successful synthesis.
	answer, err := s.answer.Synthesize(ctx, cfg, req.Question, chunks)
	if err != nil {
		return nil, err
	}

	return s.marshal(domain.AskResponse{Chunks: chunks, Answer: answer})
}

func (s *Service) errorJSON(err error) json.RawMessage {
	data, merr := json.Marshal(domain.ErrorResponse{
		Error: err.Error(),
		Kind:  domain.ErrorKind(err),
	})
	if merr != nil {
		return json.RawMessage(internalErrorBody)
	}
	return data
}

func (s *Service) marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return nil, err
	}
	return data, nil
}
