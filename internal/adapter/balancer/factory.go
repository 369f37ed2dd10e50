package balancer

import (
	"fmt"
	"sync"

	"github.com/olla-project/framework/internal/core/domain"
)

const (
	DefaultBalancerRoundRobin       = "round-robin"
	DefaultBalancerRandom           = "random"
	DefaultBalancerLeastConnections = "least-connections"
)

// Factory resolves a LoadBalancer strategy by its configured name,
// per spec §4.2 ("malformed strategy name fails BadRequest").
type Factory struct {
	creators map[string]func() domain.EndpointSelector
	mu       sync.RWMutex
}

func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]func() domain.EndpointSelector)}

	f.Register(DefaultBalancerRoundRobin, func() domain.EndpointSelector { return NewRoundRobinSelector() })
	f.Register(DefaultBalancerRandom, func() domain.EndpointSelector { return NewRandomSelector() })
	f.Register(DefaultBalancerLeastConnections, func() domain.EndpointSelector { return NewLeastConnectionsSelector() })

	return f
}

func (f *Factory) Register(name string, creator func() domain.EndpointSelector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = creator
}

func (f *Factory) Create(name string) (domain.EndpointSelector, error) {
	f.mu.RLock()
	creator, exists := f.creators[name]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("balancer: unknown strategy %q", name)
	}
	return creator(), nil
}

func (f *Factory) AvailableStrategies() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	strategies := make([]string, 0, len(f.creators))
	for name := range f.creators {
		strategies = append(strategies, name)
	}
	return strategies
}
