package balancer

import (
	"context"
	"fmt"
	"sync"

	"github.com/olla-project/framework/internal/core/domain"
)

// LeastConnectionsSelector picks the endpoint with the fewest
// in-flight requests, tracked via RecordStart/RecordCompletion.
type LeastConnectionsSelector struct {
	connections map[string]int64
	mu          sync.RWMutex
}

func NewLeastConnectionsSelector() *LeastConnectionsSelector {
	return &LeastConnectionsSelector{connections: make(map[string]int64)}
}

func (l *LeastConnectionsSelector) Name() string { return DefaultBalancerLeastConnections }

func (l *LeastConnectionsSelector) Select(_ context.Context, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("balancer: no endpoints available")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var selected *domain.ServiceEndpoint
	minConnections := int64(-1)
	for _, endpoint := range endpoints {
		key := endpoint.Key()
		count := l.connections[key]
		if minConnections == -1 || count < minConnections {
			minConnections = count
			selected = endpoint
		}
	}
	return selected, nil
}

// RecordStart increments the in-flight count, called when an endpoint
// is handed a request.
func (l *LeastConnectionsSelector) RecordStart(endpoint *domain.ServiceEndpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connections[endpoint.Key()]++
}

// RecordCompletion decrements the in-flight count on any completion,
// success or failure (spec §9 open-question resolution).
func (l *LeastConnectionsSelector) RecordCompletion(endpoint *domain.ServiceEndpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := endpoint.Key()
	if count, exists := l.connections[key]; exists && count > 0 {
		l.connections[key]--
	}
}

// ConnectionCount returns the current tracked in-flight count, used by tests.
func (l *LeastConnectionsSelector) ConnectionCount(endpoint *domain.ServiceEndpoint) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connections[endpoint.Key()]
}
