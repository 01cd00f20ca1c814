package ask

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/usecase/retry"
)

// --- Mocks ---

type mockEmbedder struct {
	embedFn func(ctx context.Context, modelID, region, text string) ([]float32, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, modelID, region, text string) ([]float32, error) {
	m.calls++
	if m.embedFn == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return m.embedFn(ctx, modelID, region, text)
}

type mockGateway struct {
	executeFn func(ctx context.Context, cfg domain.SearchConfig, method, path string, body []byte) (*domain.BackendResponse, error)
	calls     int
	lastPath  string
	lastBody  []byte
}

func (m *mockGateway) Execute(
	ctx context.Context, cfg domain.SearchConfig, method, path string, body []byte,
) (*domain.BackendResponse, error) {
	m.calls++
	m.lastPath = path
	m.lastBody = body
	if m.executeFn == nil {
		return &domain.BackendResponse{Status: 200, Body: []byte(`{"hits":{"hits":[]}}`)}, nil
	}
	return m.executeFn(ctx, cfg, method, path, body)
}

func newTestService(embed *mockEmbedder, gw *mockGateway) *Service {
	return New(embed, gw, retry.New(3, time.Millisecond, zap.NewNop()), zap.NewNop())
}

func testConfig() domain.SearchConfig {
	return domain.Resolve(domain.SearchConfig{
		Endpoint:         "https://search-docs.us-west-2.es.amazonaws.com",
		Index:            "docs",
		EmbeddingModelID: "embed-model",
	}, nil)
}
