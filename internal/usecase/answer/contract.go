package answer

import "context"

// Generator invokes a hosted generation model with a bounded output size.
type Generator interface {
	Generate(ctx context.Context, modelID, region, prompt string, maxTokens int) (string, error)
}
