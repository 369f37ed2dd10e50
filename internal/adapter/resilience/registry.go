package resilience

import (
	"sync"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
)

// Registry resolves (and lazily creates) a named CircuitBreaker,
// grounded on the teacher's health.CircuitBreaker sync.Map-keyed
// per-endpoint state, generalised to hold full CircuitBreaker values
// instead of a bare circuitState.
type Registry struct {
	configFor func(name string) domain.BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

var _ ports.CircuitBreakerRegistry = (*Registry)(nil)

// NewRegistry builds a registry that configures each newly created
// breaker via configFor. Pass domain.DefaultBreakerConfig to use the
// spec default for every name.
func NewRegistry(configFor func(name string) domain.BreakerConfig) *Registry {
	return &Registry{
		configFor: configFor,
		breakers:  make(map[string]*CircuitBreaker),
	}
}

func (r *Registry) Get(name string) ports.CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}
	cb = NewCircuitBreaker(r.configFor(name))
	r.breakers[name] = cb
	return cb
}
