package ask

import (
	"context"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// Embedder vectorizes text via a hosted embedding model.
type Embedder interface {
	Embed(ctx context.Context, modelID, region, text string) ([]float32, error)
}

// Gateway executes one signed call against the search backend.
type Gateway interface {
	Execute(
		ctx context.Context, cfg domain.SearchConfig, method, path string, body []byte,
	) (*domain.BackendResponse, error)
}
