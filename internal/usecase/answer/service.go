// Package answer synthesizes a natural-language answer from retrieved chunks.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/usecase/retry"
)

// promptTemplate is fixed and not user-overridable, so the answer-only-from-
// context grounding guarantee holds for every caller.
const promptTemplate = "Based on the following context chunks, please answer the question.\n\n" +
	"Context:\n%s\n\nQuestion: %s\n\n" +
	"Please provide a clear and concise answer based only on the information provided. " +
	"If the context doesn't contain enough information, please say so."

// Service builds the context block and invokes the generation model.
type Service struct {
	gen    Generator
	retry  *retry.Policy
	logger *zap.Logger
}

// New creates an answer service.
func New(gen Generator, retryPolicy *retry.Policy, logger *zap.Logger) *Service {
	return &Service{gen: gen, retry: retryPolicy, logger: logger}
}

// Synthesize produces an answer grounded in the given chunks, in pipeline
// order, bounded by cfg.MaxTokens output tokens.
func (s *Service) Synthesize(
	ctx context.Context, cfg domain.SearchConfig, question string, chunks []domain.RetrievedChunk,
) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, contextBlock(chunks), question)

	var answer string
	err := s.retry.Do(ctx, func() error {
		a, err := s.gen.Generate(ctx, cfg.AnswerModelID, cfg.ModelRegion, prompt, cfg.MaxTokens)
		if err != nil {
			return err
		}
		answer = a
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// contextBlock concatenates chunk headers and contents, one blank line
// between chunks.
func contextBlock(chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		var b strings.Builder
		fmt.Fprintf(&b, "Chunk %d", i+1)
		if c.DocName != "" {
			fmt.Fprintf(&b, " (from %s)", c.DocName)
		}
		if c.SectionTitle != "" {
			fmt.Fprintf(&b, " - %s", c.SectionTitle)
		}
		b.WriteString(":\n")
		b.WriteString(c.Content)
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n")
}
