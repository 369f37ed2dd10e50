// Package ports declares the capability interfaces the core composes
// (registry, load balancer, pool, resilience, router, client) plus the
// external plug-points it consumes but does not implement
// (ProtocolHandler, Serializer) — mirroring olla's core/ports package,
// which keeps port interfaces separate from their adapters.
package ports

import (
	"context"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
)

// Registry is a durable directory of ServiceInfo keyed by
// (namespace, name, id), with TTL-based liveness and change
// subscriptions (spec §4.1).
type Registry interface {
	Register(ctx context.Context, info *domain.ServiceInfo) error
	Deregister(ctx context.Context, id string) error
	Heartbeat(ctx context.Context, id string) error
	Discover(ctx context.Context, name, version string) ([]*domain.ServiceInfo, error)
	UpdateHealthStatus(ctx context.Context, id string, status domain.HealthStatus) error
	Watch(ctx context.Context, name string, cb domain.WatchCallback) (domain.WatchCancel, error)
	Stats(ctx context.Context) (domain.RegistryStats, error)
	Close() error
}

// LoadBalancer selects one endpoint from a set under a configured
// policy (spec §4.2). domain.EndpointSelector is the strategy
// interface itself; LoadBalancer is the factory-resolved facade a
// caller asks for by name.
type LoadBalancer interface {
	Select(ctx context.Context, strategy string, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error)
}

// ConnectionPool bounds a set of warm transports to one endpoint
// (spec §4.3).
type ConnectionPool interface {
	Acquire(ctx context.Context, deadline time.Time) (*domain.ManagedConnection, error)
	Release(conn *domain.ManagedConnection)
	Close() <-chan struct{}
	Stats() domain.PoolStats
}

// ConnectionManager maps endpoint -> ConnectionPool and owns
// cross-pool lifecycle (spec §4.4).
type ConnectionManager interface {
	GetConnection(ctx context.Context, endpoint *domain.ServiceEndpoint) (*domain.ManagedConnection, error)
	ReleaseConnection(conn *domain.ManagedConnection)
	CloseConnections(endpoint *domain.ServiceEndpoint) error
	CloseAll() error
	ShutdownGracefully(ctx context.Context, timeout time.Duration) (failed int, err error)
	GetPoolStats(endpoint *domain.ServiceEndpoint) domain.PoolStats
	GetTotalStats() domain.PoolStats
}

// CircuitBreaker is a per-target three-state controller that fails
// fast during sustained downstream failure (spec §4.5).
type CircuitBreaker interface {
	AllowRequest() bool
	RecordSuccess()
	RecordFailure()
	Reset()
	Snapshot() domain.BreakerSnapshot
}

// CircuitBreakerRegistry resolves (and lazily creates) a named breaker.
type CircuitBreakerRegistry interface {
	Get(name string) CircuitBreaker
}

// RetryExecutor re-runs an operation while the failure is classified
// retryable (spec §4.6).
type RetryExecutor interface {
	Execute(ctx context.Context, policy domain.RetryPolicy, op func(ctx context.Context) (any, error)) (any, error)
}

// MessageRouter translates an InternalRequest into a concrete
// ServiceEndpoint (spec §4.7).
type MessageRouter interface {
	Route(ctx context.Context, req *domain.InternalRequest) (*domain.ServiceEndpoint, error)
	UpdateRoutingTable(services []*domain.ServiceInfo)
	AddRule(rule domain.RoutingRule)
}

// Serializer is the external codec capability the core consumes but
// does not implement (spec §1 non-goals).
type Serializer interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// ProtocolHandler is the external wire-protocol capability the core
// consumes but does not implement (spec §1 non-goals).
type ProtocolHandler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Invoke(ctx context.Context, conn *domain.ManagedConnection, method string, payload []byte) ([]byte, error)
}

// HandlerFunc is an explicit typed service handler registered via
// Client.RegisterService, replacing reflection-based method dispatch
// (spec §9).
type HandlerFunc func(ctx context.Context, method string, payload []byte) ([]byte, error)

// Client is the call-site facade composing the subsystems above
// (spec §4.8).
type Client interface {
	Call(ctx context.Context, service, method string, request []byte) ([]byte, error)
	CallAsync(ctx context.Context, service, method string, request []byte) (<-chan CallResult, error)
	Stream(ctx context.Context, service, method string, request []byte) (<-chan StreamItem, error)
	RegisterService(name string, handler HandlerFunc)
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// CallResult is the resolved value of a CallAsync future.
type CallResult struct {
	Err      error
	Response []byte
}

// StreamItem is one element of a cold, producer-terminated Stream.
type StreamItem struct {
	Err  error
	Data []byte
	Done bool
}
