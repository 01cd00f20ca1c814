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

const anthropicVersion = "bedrock-2023-05-31"

// Generator produces natural-language answers via a hosted generation model.
type Generator struct {
	client invoker
	logger *zap.Logger
}

// NewGenerator creates a Bedrock generation provider.
func NewGenerator(client invoker, logger *zap.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

type generateRequest struct {
	AnthropicVersion string            `json:"anthropic_version"`
	MaxTokens        int               `json:"max_tokens"`
	Messages         []generateMessage `json:"messages"`
}

type generateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate invokes the generation model once with a bounded output token
// count and returns the first text segment of the response.
func (g *Generator) Generate(
	ctx context.Context, modelID, region, prompt string, maxTokens int,
) (string, error) {
	payload, err := json.Marshal(generateRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []generateMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	start := time.Now()
	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	}, regionOpts(region)...)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(modelID, "error").Inc()
		return "", classifyInvokeErr("answer generation", err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(modelID, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(modelID).
		Observe(time.Since(start).Seconds())

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("parse generate response: %v: %w", err, domain.ErrSerialization)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", fmt.Errorf("generate response has no text segment: %w", domain.ErrSerialization)
	}
	return parsed.Content[0].Text, nil
}
