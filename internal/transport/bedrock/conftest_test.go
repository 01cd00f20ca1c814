package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// --- Mocks ---

type mockInvoker struct {
	invokeFn    func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
	calls       int
	lastModelID string
	lastBody    []byte
	lastOptFns  []func(*bedrockruntime.Options)
}

func (m *mockInvoker) InvokeModel(
	ctx context.Context, params *bedrockruntime.InvokeModelInput,
	optFns ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	m.calls++
	if params.ModelId != nil {
		m.lastModelID = *params.ModelId
	}
	m.lastBody = params.Body
	m.lastOptFns = optFns
	return m.invokeFn(ctx, params)
}

func respondWith(body string) func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
	return func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
		return &bedrockruntime.InvokeModelOutput{Body: []byte(body)}, nil
	}
}
