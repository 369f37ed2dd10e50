package pool

import (
	"context"
	"testing"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
)

func TestGetConnectionWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	var attempts int
	d := DialerFunc(func(_ context.Context, _ *domain.ServiceEndpoint) (domain.RawChannel, error) {
		attempts++
		if attempts < 3 {
			return nil, domain.NewFrameworkError(domain.ConnectionError, "dial refused")
		}
		return &fakeChannel{}, nil
	})
	cfg := baseConfig()
	cfg.MaxConnections = 1
	m := NewManager(cfg, d, testLogger())

	conn, err := getConnectionWithRetry(context.Background(), m, testEndpoint(), 5, time.Millisecond, 10*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if conn == nil {
		t.Fatal("expected a connection")
	}
	if attempts != 3 {
		t.Errorf("expected 3 dial attempts, got %d", attempts)
	}
}

func TestGetConnectionWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	d := DialerFunc(func(_ context.Context, _ *domain.ServiceEndpoint) (domain.RawChannel, error) {
		return nil, domain.NewFrameworkError(domain.ConnectionError, "dial refused")
	})
	m := NewManager(baseConfig(), d, testLogger())

	_, err := getConnectionWithRetry(context.Background(), m, testEndpoint(), 2, time.Millisecond, 10*time.Millisecond, testLogger())
	if err == nil {
		t.Fatal("expected failure after exhausting retry attempts")
	}
}

func TestGetConnectionWithRetry_DoesNotRetryNonTransientErrors(t *testing.T) {
	var attempts int
	d := DialerFunc(func(_ context.Context, _ *domain.ServiceEndpoint) (domain.RawChannel, error) {
		attempts++
		return nil, domain.NewFrameworkError(domain.BadRequest, "malformed endpoint")
	})
	m := NewManager(baseConfig(), d, testLogger())

	_, err := GetConnectionWithRetry(context.Background(), m, testEndpoint(), 5, testLogger())
	if err == nil {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("expected no retries for BadRequest, got %d attempts", attempts)
	}
}
