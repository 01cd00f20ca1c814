package proxy

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// RawSearcher executes passthrough queries.
type RawSearcher interface {
	Execute(
		ctx context.Context, cfg domain.SearchConfig, req *domain.RawSearchRequest,
	) (json.RawMessage, error)
}

// Pipeline runs the retrieval pipeline.
type Pipeline interface {
	Search(
		ctx context.Context, cfg domain.SearchConfig, question string, topK int,
	) ([]domain.RetrievedChunk, error)
}

// Synthesizer generates an answer from retrieved chunks.
type Synthesizer interface {
	Synthesize(
		ctx context.Context, cfg domain.SearchConfig, question string, chunks []domain.RetrievedChunk,
	) (string, error)
}
