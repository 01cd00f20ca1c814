package proxy

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// --- Mocks ---

type mockRawSearcher struct {
	executeFn func(ctx context.Context, cfg domain.SearchConfig, req *domain.RawSearchRequest) (json.RawMessage, error)
	calls     int
}

func (m *mockRawSearcher) Execute(
	ctx context.Context, cfg domain.SearchConfig, req *domain.RawSearchRequest,
) (json.RawMessage, error) {
	m.calls++
	if m.executeFn == nil {
		return json.RawMessage(`{"hits":{}}`), nil
	}
	return m.executeFn(ctx, cfg, req)
}

type mockPipeline struct {
	searchFn func(ctx context.Context, cfg domain.SearchConfig, question string, topK int) ([]domain.RetrievedChunk, error)
	calls    int
}

func (m *mockPipeline) Search(
	ctx context.Context, cfg domain.SearchConfig, question string, topK int,
) ([]domain.RetrievedChunk, error) {
	m.calls++
	if m.searchFn == nil {
		return []domain.RetrievedChunk{{Content: "chunk one", PageIndices: []int{}}}, nil
	}
	return m.searchFn(ctx, cfg, question, topK)
}

type mockSynthesizer struct {
	synthesizeFn func(ctx context.Context, cfg domain.SearchConfig, question string, chunks []domain.RetrievedChunk) (string, error)
	calls        int
}

func (m *mockSynthesizer) Synthesize(
	ctx context.Context, cfg domain.SearchConfig, question string, chunks []domain.RetrievedChunk,
) (string, error) {
	m.calls++
	if m.synthesizeFn == nil {
		return "synthesized answer", nil
	}
	return m.synthesizeFn(ctx, cfg, question, chunks)
}

func testEnv() domain.SearchConfig {
	return domain.SearchConfig{
		Endpoint:         "https://search-docs.us-west-2.es.amazonaws.com",
		Index:            "docs",
		EmbeddingModelID: "embed-model",
		AnswerModelID:    "answer-model",
	}
}

func newTestService(
	env domain.SearchConfig,
	raw *mockRawSearcher,
	ask *mockPipeline,
	answer *mockSynthesizer,
) *Service {
	return New(env, raw, ask, answer, 30*time.Second, zap.NewNop())
}
