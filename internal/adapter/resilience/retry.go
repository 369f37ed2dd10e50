package resilience

import (
	"context"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
)

// RetryExecutor re-runs an operation while its failure classifies as
// retryable under the given policy, with cancellable exponential
// backoff (spec §4.6). New as a standalone component — the teacher
// inlines retry into its proxy config rather than exposing it as a
// capability of its own.
type RetryExecutor struct{}

var _ ports.RetryExecutor = (*RetryExecutor)(nil)

func NewRetryExecutor() *RetryExecutor {
	return &RetryExecutor{}
}

// Execute runs op up to policy.MaxAttempts times. Any error is
// classified via domain.AsFrameworkError (non-FrameworkErrors are
// wrapped InternalError and never retried, per §4.6); retryable kinds
// sleep for policy.DelayForAttempt(attempt) before the next try,
// cancellable via ctx.
func (r *RetryExecutor) Execute(ctx context.Context, policy domain.RetryPolicy, op func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		fe := domain.AsFrameworkError(err)
		lastErr = fe

		if !policy.IsRetryable(fe.Kind) || attempt == policy.MaxAttempts-1 {
			return nil, fe
		}

		delay := policy.DelayForAttempt(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, domain.WrapFrameworkError(domain.Timeout, "retry: context cancelled during backoff", ctx.Err())
		}
	}
	return nil, lastErr
}
