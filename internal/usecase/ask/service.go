// Package ask implements the retrieval pipeline: embed the question, run a
// k-nearest-neighbor search, and extract display content from each hit.
package ask

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/usecase/retry"
)

// Service runs the vector search pipeline.
type Service struct {
	embed   Embedder
	gateway Gateway
	retry   *retry.Policy
	logger  *zap.Logger
}

// New creates an ask service.
func New(embed Embedder, gateway Gateway, retryPolicy *retry.Policy, logger *zap.Logger) *Service {
	return &Service{embed: embed, gateway: gateway, retry: retryPolicy, logger: logger}
}

type knnQuery struct {
	Size   int       `json:"size"`
	Query  queryNode `json:"query"`
	Source []string  `json:"_source"`
}

type queryNode struct {
	KNN knnNode `json:"knn"`
}

type knnNode struct {
	Embedding knnEmbedding `json:"embedding"`
}

type knnEmbedding struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

// Search embeds the question and retrieves the topK nearest chunks. The
// backend's hit ordering is preserved; no re-sorting is applied.
func (s *Service) Search(
	ctx context.Context, cfg domain.SearchConfig, question string, topK int,
) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question required: %w", domain.ErrValidation)
	}
	if cfg.EmbeddingModelID == "" {
		return nil, domain.NewConfigError("embeddingModelId")
	}
	if topK <= 0 {
		topK = cfg.TopK
	}

	var vector []float32
	err := s.retry.Do(ctx, func() error {
		v, err := s.embed.Embed(ctx, cfg.EmbeddingModelID, cfg.ModelRegion, question)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	body, err := json.Marshal(knnQuery{
		Size: topK,
		Query: queryNode{
			KNN: knnNode{Embedding: knnEmbedding{Vector: vector, K: topK}},
		},
		Source: cfg.SourceFields(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal knn query: %w", err)
	}

	path := "/" + url.PathEscape(cfg.Index) + "/_search"
	res, err := s.gateway.Execute(ctx, cfg, http.MethodPost, path, body)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("knn search failed with status %d: %w",
			res.Status, domain.ErrUpstream)
	}

	return extractChunks(res.Body, cfg)
}

type searchHit struct {
	Score  float64                    `json:"_score"`
	Source map[string]json.RawMessage `json:"_source"`
}

// extractChunks converts backend hits to chunks, applying the content field
// fallback order.
func extractChunks(body []byte, cfg domain.SearchConfig) ([]domain.RetrievedChunk, error) {
	var parsed struct {
		Hits *struct {
			Hits []searchHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %v: %w", err, domain.ErrSerialization)
	}
	if parsed.Hits == nil {
		return nil, fmt.Errorf("search response has no hits container: %w", domain.ErrSerialization)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		chunks = append(chunks, chunkFromHit(hit, cfg))
	}
	return chunks, nil
}

func chunkFromHit(hit searchHit, cfg domain.SearchConfig) domain.RetrievedChunk {
	content := stringField(hit.Source, cfg.PrimaryContentField)
	if content == "" {
		for _, f := range cfg.FallbackContentFields {
			if v := stringField(hit.Source, f); v != "" {
				content = v
				break
			}
		}
	}

	return domain.RetrievedChunk{
		Content:      content,
		Score:        hit.Score,
		Title:        stringField(hit.Source, "title"),
		SectionTitle: stringField(hit.Source, "section_title"),
		DocName:      stringField(hit.Source, "doc_name"),
		ChunkType:    stringField(hit.Source, "chunk_type"),
		ChunkSubtype: stringField(hit.Source, "chunk_subtype"),
		PageIndices:  intsField(hit.Source, "page_indices"),
	}
}

func stringField(src map[string]json.RawMessage, name string) string {
	raw, ok := src[name]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// intsField always returns a non-nil slice so page_indices marshals as [].
func intsField(src map[string]json.RawMessage, name string) []int {
	out := []int{}
	raw, ok := src[name]
	if !ok {
		return out
	}
	var vals []int
	if json.Unmarshal(raw, &vals) != nil {
		return out
	}
	if vals != nil {
		out = vals
	}
	return out
}
