// Package balancer provides LoadBalancer strategies (spec §4.2):
// round-robin, random and least-connections,
// generalised from olla's adapter/balancer package (*domain.Endpoint
// -> *domain.ServiceEndpoint).
package balancer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/olla-project/framework/internal/core/domain"
)

type RoundRobinSelector struct {
	counter uint64
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{}
}

func (r *RoundRobinSelector) Name() string { return DefaultBalancerRoundRobin }

func (r *RoundRobinSelector) Select(_ context.Context, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("balancer: no endpoints available")
	}
	current := atomic.AddUint64(&r.counter, 1) - 1
	index := current % uint64(len(endpoints))
	return endpoints[index], nil
}

func (r *RoundRobinSelector) RecordCompletion(*domain.ServiceEndpoint) {}
func (r *RoundRobinSelector) RecordStart(*domain.ServiceEndpoint)      {}
