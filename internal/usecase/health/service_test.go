package health

import (
	"context"
	"errors"
	"testing"
)

type mockCreds struct {
	err error
}

func (m *mockCreds) CheckCredentials(context.Context) error { return m.err }

type mockCache struct {
	err error
}

func (m *mockCache) Ping(context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockCreds{}, &mockCache{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %v, want %v", report.Status, Healthy)
	}
	if report.Checks["credentials"] != CheckOK {
		t.Errorf("credentials = %v", report.Checks["credentials"])
	}
	if report.Checks["cache"] != CheckOK {
		t.Errorf("cache = %v", report.Checks["cache"])
	}
}

func TestCheck_CredentialsFailure(t *testing.T) {
	svc := New(&mockCreds{err: errors.New("no provider")}, nil)

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %v, want %v", report.Status, Degraded)
	}
	if report.Checks["credentials"] != CheckError {
		t.Errorf("credentials = %v", report.Checks["credentials"])
	}
}

func TestCheck_NilCacheSkipped(t *testing.T) {
	svc := New(&mockCreds{}, nil)

	report := svc.Check(context.Background())
	if _, ok := report.Checks["cache"]; ok {
		t.Error("cache check should be absent when no cache is configured")
	}
	if report.Status != Healthy {
		t.Errorf("status = %v, want %v", report.Status, Healthy)
	}
}

func TestCheck_CacheFailureDegrades(t *testing.T) {
	svc := New(&mockCreds{}, &mockCache{err: errors.New("timeout")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %v, want %v", report.Status, Degraded)
	}
}
