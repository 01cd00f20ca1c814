package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/usecase/retry"
)

// --- Mocks ---

type mockGenerator struct {
	generateFn func(ctx context.Context, modelID, region, prompt string, maxTokens int) (string, error)
	calls      int
	lastPrompt string
}

func (m *mockGenerator) Generate(
	ctx context.Context, modelID, region, prompt string, maxTokens int,
) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.generateFn == nil {
		return "an answer", nil
	}
	return m.generateFn(ctx, modelID, region, prompt, maxTokens)
}

func newTestService(gen *mockGenerator) *Service {
	return New(gen, retry.New(3, time.Millisecond, zap.NewNop()), zap.NewNop())
}

func testConfig() domain.SearchConfig {
	cfg := domain.Defaults()
	cfg.AnswerModelID = "answer-model"
	cfg.ModelRegion = "us-west-2"
	return cfg
}

// --- Tests ---

func TestSynthesize_PromptContainsQuestionAndChunks(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(gen)

	chunks := []domain.RetrievedChunk{
		{Content: "alpha content", DocName: "guide.pdf", SectionTitle: "Install"},
		{Content: "beta content"},
	}

	answer, err := svc.Synthesize(context.Background(), testConfig(), "how to install?", chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "an answer" {
		t.Errorf("answer = %q", answer)
	}

	prompt := gen.lastPrompt
	if !strings.Contains(prompt, "Question: how to install?") {
		t.Error("prompt missing question")
	}
	if !strings.Contains(prompt, "Chunk 1 (from guide.pdf) - Install:\nalpha content") {
		t.Errorf("prompt missing full chunk header:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Chunk 2:\nbeta content") {
		t.Errorf("prompt missing bare chunk header:\n%s", prompt)
	}
	if !strings.Contains(prompt, "based only on the information provided") {
		t.Error("prompt missing grounding instruction")
	}
}

func TestSynthesize_ChunkSeparator(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(gen)

	chunks := []domain.RetrievedChunk{{Content: "a"}, {Content: "b"}}
	if _, err := svc.Synthesize(context.Background(), testConfig(), "q", chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gen.lastPrompt, "Chunk 1:\na\n\nChunk 2:\nb") {
		t.Errorf("chunks not separated by a blank line:\n%s", gen.lastPrompt)
	}
}

func TestSynthesize_PassesModelSettings(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(_ context.Context, modelID, region, _ string, maxTokens int) (string, error) {
			if modelID != "answer-model" {
				t.Errorf("modelID = %q", modelID)
			}
			if region != "us-west-2" {
				t.Errorf("region = %q", region)
			}
			if maxTokens != 1000 {
				t.Errorf("maxTokens = %d", maxTokens)
			}
			return "ok", nil
		},
	}
	svc := newTestService(gen)

	if _, err := svc.Synthesize(context.Background(), testConfig(), "q", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSynthesize_ThrottledRetried(t *testing.T) {
	gen := &mockGenerator{}
	gen.generateFn = func(_ context.Context, _, _, _ string, _ int) (string, error) {
		if gen.calls < 2 {
			return "", fmt.Errorf("busy: %w", domain.ErrThrottled)
		}
		return "recovered", nil
	}
	svc := newTestService(gen)

	answer, err := svc.Synthesize(context.Background(), testConfig(), "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if gen.calls != 2 {
		t.Errorf("calls = %d, want 2", gen.calls)
	}
}

func TestSynthesize_Failure(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(_ context.Context, _, _, _ string, _ int) (string, error) {
			return "", fmt.Errorf("model error: %w", domain.ErrUpstream)
		},
	}
	svc := newTestService(gen)

	_, err := svc.Synthesize(context.Background(), testConfig(), "q", nil)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if gen.calls != 1 {
		t.Errorf("calls = %d, want 1", gen.calls)
	}
}
