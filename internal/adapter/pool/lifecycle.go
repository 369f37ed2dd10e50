package pool

import (
	"context"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/logger"
)

// DefaultRetryBaseDelay is the production backoff start (spec §4.4:
// 1s, 2s, 4s, ..., capped at 30s).
const DefaultRetryBaseDelay = time.Second

// DefaultRetryMaxDelay caps the exponential backoff at 30s (spec §4.4).
const DefaultRetryMaxDelay = 30 * time.Second

// GetConnectionWithRetry wraps Manager.GetConnection with capped
// exponential backoff, retrying while the failure is Timeout or
// ConnectionError — the transient kinds a dead or momentarily
// saturated endpoint produces (spec §4.4).
func GetConnectionWithRetry(ctx context.Context, m *Manager, endpoint *domain.ServiceEndpoint, maxAttempts int, log logger.StyledLogger) (*domain.ManagedConnection, error) {
	return getConnectionWithRetry(ctx, m, endpoint, maxAttempts, DefaultRetryBaseDelay, DefaultRetryMaxDelay, log)
}

func getConnectionWithRetry(ctx context.Context, m *Manager, endpoint *domain.ServiceEndpoint, maxAttempts int, baseDelay, maxDelay time.Duration, log logger.StyledLogger) (*domain.ManagedConnection, error) {
	delay := baseDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := m.GetConnection(ctx, endpoint)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		fe := domain.AsFrameworkError(err)
		if fe == nil || !(fe.Kind == domain.Timeout || fe.Kind == domain.ConnectionError) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		log.Warn("retrying connection acquire", "endpoint", endpoint.Key(), "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, lastErr
}
