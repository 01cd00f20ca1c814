package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
	"github.com/kailas-cloud/searchproxy/internal/metrics"
)

const providerName = "bedrock"

// Embedder converts text into a vector via a hosted embedding model.
type Embedder struct {
	client invoker
	logger *zap.Logger
}

// NewEmbedder creates a Bedrock embedding provider.
func NewEmbedder(client invoker, logger *zap.Logger) *Embedder {
	return &Embedder{client: client, logger: logger}
}

// Embed invokes the embedding model once. The model id and region are call
// parameters so per-request configuration overrides reach the transport.
func (e *Embedder) Embed(ctx context.Context, modelID, region, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{"inputText": text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	start := time.Now()
	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	}, regionOpts(region)...)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, modelID, "error").Inc()
		return nil, classifyInvokeErr("embedding generation", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, modelID, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, modelID).
		Observe(time.Since(start).Seconds())

	var parsed struct {
		Embedding json.RawMessage `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response: %v: %w", err, domain.ErrSerialization)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embed response has no embedding field: %w", domain.ErrSerialization)
	}

	var vector []float32
	if err := json.Unmarshal(parsed.Embedding, &vector); err != nil {
		return nil, fmt.Errorf("embedding field is not a numeric array: %w", domain.ErrSerialization)
	}
	// A JSON null unmarshals cleanly into a nil slice.
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding field is null or empty: %w", domain.ErrSerialization)
	}
	return vector, nil
}
