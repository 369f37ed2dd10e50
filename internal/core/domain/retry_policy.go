package domain

import "time"

// RetryPolicy is the immutable config driving RetryExecutor (spec §4.6).
type RetryPolicy struct {
	RetryableErrorKinds []ErrorKind
	MaxAttempts         int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	Multiplier          float64
}

// DefaultRetryPolicy matches the spec's §4.6 default config, which in
// turn generalises olla's ProxyConfig.{MaxRetries,RetryBackoff} fields.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		InitialDelay:        100 * time.Millisecond,
		MaxDelay:            5 * time.Second,
		Multiplier:          2.0,
		RetryableErrorKinds: DefaultRetryableKinds(),
	}
}

// IsRetryable reports whether kind is in this policy's retryable set.
func (p RetryPolicy) IsRetryable(kind ErrorKind) bool {
	for _, k := range p.RetryableErrorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DelayForAttempt computes the capped exponential backoff delay before
// attempt (0-indexed) retries, per testable property 9:
// delay[i+1] = min(initialDelay * multiplier^i, maxDelay).
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}
