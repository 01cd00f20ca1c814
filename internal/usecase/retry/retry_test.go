package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

func TestDo_SuccessFirstAttempt(t *testing.T) {
	p := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ThrottledRetriedUpToMaxAttempts(t *testing.T) {
	p := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("model busy: %w", domain.ErrThrottled)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, domain.ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ThrottledThenSuccess(t *testing.T) {
	p := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("busy: %w", domain.ErrThrottled)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonThrottledFailsImmediately(t *testing.T) {
	p := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	wantErr := fmt.Errorf("bad request: %w", domain.ErrUpstream)
	err := p.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for non-throttled)", calls)
	}
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	p := New(5, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return fmt.Errorf("busy: %w", domain.ErrThrottled)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls >= 5 {
		t.Errorf("calls = %d, want fewer than max attempts", calls)
	}
}
