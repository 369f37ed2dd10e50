// Package client composes the registry, router, load balancer,
// connection manager and resilience layers into the single call-site
// facade external callers use (spec §4.8): Call, CallAsync, Stream and
// RegisterService, wrapped in a start/stop lifecycle gate grounded on
// the teacher's discovery.ModelDiscoveryService.Start/Stop idiom
// (atomic.Bool CompareAndSwap, refusing a double start and treating a
// double stop as a no-op).
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// Config wires every collaborator the facade composes. All fields are
// required except CompletionRecorder; local handlers are added with
// RegisterService, not through Config.
type Config struct {
	Registry        ports.Registry
	Router          ports.MessageRouter
	ConnectionMgr   ports.ConnectionManager
	BreakerRegistry ports.CircuitBreakerRegistry
	RetryExecutor   ports.RetryExecutor
	Protocol        ports.ProtocolHandler
	Serializer      ports.Serializer
	RetryPolicy     domain.RetryPolicy
	Strategy        string
	Logger          logger.StyledLogger

	// CompletionRecorder, when set, is notified once per dispatch that
	// reached the load balancer — success or failure alike — so
	// stateful strategies (least-connections) decrement their in-flight
	// count on every completion, not just successes (spec §9 open
	// question resolution). balancer.LoadBalancer satisfies this.
	CompletionRecorder CompletionRecorder
}

// CompletionRecorder is the subset of ports.LoadBalancer's backing
// implementation the client needs to close the RecordStart it
// triggered indirectly via Router.Route -> LoadBalancer.Select.
type CompletionRecorder interface {
	RecordCompletion(strategy string, endpoint *domain.ServiceEndpoint)
}

// client is the default ports.Client: one facade instance serves
// every service name, routing each call through
// retry -> breaker -> router -> connMgr.acquire -> protocol.invoke ->
// connMgr.release (spec §4.8).
type client struct {
	cfg Config
	log logger.StyledLogger

	mu       sync.RWMutex
	handlers map[string]ports.HandlerFunc

	running atomic.Bool
}

var _ ports.Client = (*client)(nil)

func New(cfg Config) ports.Client {
	return &client{
		cfg:      cfg,
		log:      cfg.Logger,
		handlers: make(map[string]ports.HandlerFunc),
	}
}

func (c *client) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("client: already started")
	}
	if err := c.cfg.Protocol.Start(ctx); err != nil {
		c.running.Store(false)
		return domain.WrapFrameworkError(domain.InternalError, "client: protocol handler failed to start", err)
	}
	c.log.Info("client started")
	return nil
}

func (c *client) Shutdown(ctx context.Context) error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := c.cfg.Protocol.Stop(ctx); err != nil {
		c.log.Error("client: protocol handler stop failed", "error", err)
	}
	if err := c.cfg.ConnectionMgr.CloseAll(); err != nil {
		c.log.Error("client: connection manager close failed", "error", err)
	}
	c.log.Info("client stopped")
	return nil
}

func (c *client) RegisterService(name string, handler ports.HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = handler
}

func (c *client) localHandler(name string) (ports.HandlerFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[name]
	return h, ok
}

// Call performs one request/response round trip (spec §4.8). A service
// registered locally via RegisterService is dispatched in-process,
// bypassing routing/pooling entirely; everything else goes out through
// the full retry/breaker/router/pool/protocol chain.
func (c *client) Call(ctx context.Context, service, method string, request []byte) ([]byte, error) {
	if !c.running.Load() {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, "client: not started")
	}
	if h, ok := c.localHandler(service); ok {
		return h(ctx, method, request)
	}

	req := &domain.InternalRequest{Service: service, Method: method, Payload: request}
	breaker := c.cfg.BreakerRegistry.Get(service)

	result, err := c.cfg.RetryExecutor.Execute(ctx, c.cfg.RetryPolicy, func(ctx context.Context) (any, error) {
		if !breaker.AllowRequest() {
			return nil, domain.NewFrameworkErrorWithService(domain.ServiceUnavailable, "client: circuit open", service)
		}

		resp, invokeErr := c.dispatch(ctx, req)
		if invokeErr != nil {
			breaker.RecordFailure()
			return nil, invokeErr
		}
		breaker.RecordSuccess()
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// wireEnvelope is the JSON shape the Serializer encodes the request
// payload into and decodes the response payload out of, so Call's
// []byte-in/[]byte-out boundary still exercises the serializer stage
// of the dispatch chain instead of handing raw bytes straight to the
// protocol handler (spec §4.8: connMgr -> serializer -> protocol ->
// serializer -> connMgr.release).
type wireEnvelope struct {
	Payload []byte `json:"payload"`
}

// dispatch resolves an endpoint, acquires a pooled connection, encodes
// the request and decodes the response through the configured
// Serializer around the protocol invocation, always releasing the
// connection back to the pool regardless of outcome.
func (c *client) dispatch(ctx context.Context, req *domain.InternalRequest) ([]byte, error) {
	endpoint, err := c.cfg.Router.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.cfg.CompletionRecorder != nil {
		defer c.cfg.CompletionRecorder.RecordCompletion(c.cfg.Strategy, endpoint)
	}

	conn, err := c.cfg.ConnectionMgr.GetConnection(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer c.cfg.ConnectionMgr.ReleaseConnection(conn)

	wire, err := c.cfg.Serializer.Encode(wireEnvelope{Payload: req.Payload})
	if err != nil {
		return nil, domain.WrapFrameworkError(domain.SerializationError, "client: failed to encode request payload", err)
	}

	raw, err := c.cfg.Protocol.Invoke(ctx, conn, req.Method, wire)
	if err != nil {
		return nil, err
	}

	var resp wireEnvelope
	if err := c.cfg.Serializer.Decode(raw, &resp); err != nil {
		return nil, domain.WrapFrameworkError(domain.SerializationError, "client: failed to decode response payload", err)
	}
	return resp.Payload, nil
}

// CallAsync runs Call on a detached goroutine and reports the result
// on a 1-buffered channel so the caller is never blocked waiting to
// send (spec §4.8).
func (c *client) CallAsync(ctx context.Context, service, method string, request []byte) (<-chan ports.CallResult, error) {
	if !c.running.Load() {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, "client: not started")
	}
	out := make(chan ports.CallResult, 1)
	go func() {
		resp, err := c.Call(ctx, service, method, request)
		out <- ports.CallResult{Response: resp, Err: err}
		close(out)
	}()
	return out, nil
}

// Stream issues one Call and republishes its result as a single,
// producer-terminated StreamItem — the cold-stream contract of
// ports.Client without requiring a streaming-capable ProtocolHandler
// (full stream multiplexing stays a Non-goal per spec §1).
func (c *client) Stream(ctx context.Context, service, method string, request []byte) (<-chan ports.StreamItem, error) {
	if !c.running.Load() {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, "client: not started")
	}
	out := make(chan ports.StreamItem, 1)
	go func() {
		defer close(out)
		resp, err := c.Call(ctx, service, method, request)
		if err != nil {
			out <- ports.StreamItem{Err: err, Done: true}
			return
		}
		out <- ports.StreamItem{Data: resp, Done: true}
	}()
	return out, nil
}
