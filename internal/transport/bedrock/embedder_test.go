package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

func TestEmbed_Success(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"embedding":[0.1,0.2,0.3]}`)}
	e := NewEmbedder(inv, zap.NewNop())

	vec, err := e.Embed(context.Background(), "embed-model", "us-west-2", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(vec, []float32{0.1, 0.2, 0.3}) {
		t.Errorf("vec = %v", vec)
	}
	if inv.lastModelID != "embed-model" {
		t.Errorf("modelID = %q", inv.lastModelID)
	}

	var req map[string]string
	if err := json.Unmarshal(inv.lastBody, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req["inputText"] != "hello" {
		t.Errorf("inputText = %q", req["inputText"])
	}
	if len(inv.lastOptFns) != 1 {
		t.Errorf("expected a region override option, got %d", len(inv.lastOptFns))
	}
}

func TestEmbed_EmptyRegionNoOverride(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"embedding":[1]}`)}
	e := NewEmbedder(inv, zap.NewNop())

	if _, err := e.Embed(context.Background(), "m", "", "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.lastOptFns) != 0 {
		t.Errorf("expected no option fns for empty region, got %d", len(inv.lastOptFns))
	}
}

func TestEmbed_MissingEmbeddingField(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"message":"ok"}`)}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
}

func TestEmbed_NonNumericEmbedding(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"embedding":"not an array"}`)}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
}

func TestEmbed_NullEmbedding(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"embedding":null}`)}
	e := NewEmbedder(inv, zap.NewNop())

	vec, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
	if vec != nil {
		t.Errorf("vec = %v, want nil", vec)
	}
}

func TestEmbed_EmptyEmbedding(t *testing.T) {
	inv := &mockInvoker{invokeFn: respondWith(`{"embedding":[]}`)}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrSerialization) {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
}

func TestEmbed_ThrottlingClassified(t *testing.T) {
	inv := &mockInvoker{
		invokeFn: func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			return nil, &types.ThrottlingException{Message: ptr("slow down")}
		},
	}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
}

func TestEmbed_GenericAPIErrorIsUpstream(t *testing.T) {
	inv := &mockInvoker{
		invokeFn: func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ValidationException", Message: "bad model id"}
		},
	}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if errors.Is(err, domain.ErrThrottled) {
		t.Fatal("validation errors must not be retryable")
	}
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestEmbed_ThrottleCodeClassified(t *testing.T) {
	inv := &mockInvoker{
		invokeFn: func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "rate"}
		},
	}
	e := NewEmbedder(inv, zap.NewNop())

	_, err := e.Embed(context.Background(), "m", "", "text")
	if !errors.Is(err, domain.ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
}

func ptr(s string) *string { return &s }
