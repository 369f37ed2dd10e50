package balancer

import (
	"context"
	"fmt"
	"sync"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
)

// LoadBalancer implements ports.LoadBalancer by resolving (and
// caching) one domain.EndpointSelector instance per strategy name, so
// stateful strategies like least-connections keep their in-flight
// counts across calls instead of resetting every Select.
type LoadBalancer struct {
	factory    *Factory
	selectors  map[string]domain.EndpointSelector
	mu         sync.Mutex
}

var _ ports.LoadBalancer = (*LoadBalancer)(nil)

func NewLoadBalancer(factory *Factory) *LoadBalancer {
	return &LoadBalancer{
		factory:   factory,
		selectors: make(map[string]domain.EndpointSelector),
	}
}

func (lb *LoadBalancer) Select(ctx context.Context, strategy string, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, nil // spec §4.2: empty input returns "none", not an error
	}

	selector, err := lb.selectorFor(strategy)
	if err != nil {
		return nil, domain.NewFrameworkError(domain.BadRequest, fmt.Sprintf("malformed load balancer strategy %q", strategy))
	}

	endpoint, err := selector.Select(ctx, endpoints)
	if err != nil {
		return nil, err
	}
	selector.RecordStart(endpoint)
	return endpoint, nil
}

func (lb *LoadBalancer) selectorFor(strategy string) (domain.EndpointSelector, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if s, ok := lb.selectors[strategy]; ok {
		return s, nil
	}
	s, err := lb.factory.Create(strategy)
	if err != nil {
		return nil, err
	}
	lb.selectors[strategy] = s
	return s, nil
}

// RecordCompletion must be invoked by the caller once a request
// against endpoint under strategy completes, so stateful strategies
// (least-connections) can decrement their in-flight counts.
func (lb *LoadBalancer) RecordCompletion(strategy string, endpoint *domain.ServiceEndpoint) {
	lb.mu.Lock()
	selector, ok := lb.selectors[strategy]
	lb.mu.Unlock()
	if ok {
		selector.RecordCompletion(endpoint)
	}
}
