// Package bedrock invokes hosted embedding and generation models through the
// Bedrock runtime InvokeModel API.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// invoker is the consumer interface over the Bedrock runtime client.
type invoker interface {
	InvokeModel(
		ctx context.Context, params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// regionOpts returns per-call options overriding the client region, so one
// client serves models hosted in a region different from the backend's.
func regionOpts(region string) []func(*bedrockruntime.Options) {
	if region == "" {
		return nil
	}
	return []func(*bedrockruntime.Options){
		func(o *bedrockruntime.Options) { o.Region = region },
	}
}

// classifyInvokeErr maps an InvokeModel error onto the domain taxonomy.
// Throttling is the only retryable class.
func classifyInvokeErr(op string, err error) error {
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return fmt.Errorf("%s throttled: %w", op, domain.ErrThrottled)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return fmt.Errorf("%s throttled: %w", op, domain.ErrThrottled)
		}
		return fmt.Errorf("%s failed: %s: %s: %w",
			op, apiErr.ErrorCode(), apiErr.ErrorMessage(), domain.ErrUpstream)
	}

	return fmt.Errorf("%s failed: %v: %w", op, err, domain.ErrUpstream)
}
