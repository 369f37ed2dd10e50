package domain

import "time"

// BreakerState is the CircuitBreaker's 3-state machine (spec §4.5).
type BreakerState int32

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig configures one CircuitBreaker instance.
type BreakerConfig struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultBreakerConfig mirrors olla's DefaultCircuitBreakerThreshold/Timeout
// constants, generalised with an explicit successThreshold for HALF_OPEN.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// BreakerSnapshot is a point-in-time, consistent read of breaker state
// for observability (spec §3).
type BreakerSnapshot struct {
	LastFailureTime time.Time
	Name            string
	State           BreakerState
	FailureCount    int
	SuccessCount    int
}
