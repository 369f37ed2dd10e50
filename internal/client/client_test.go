package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

func testLogger() logger.StyledLogger {
	log, _, _ := logger.New(&logger.Config{Level: "error"})
	return *logger.NewStyledLogger(log, false)
}

func testEndpoint() *domain.ServiceEndpoint {
	return &domain.ServiceEndpoint{ServiceID: "1", ServiceName: "billing", Address: "127.0.0.1", Port: 8080, Protocol: "http"}
}

type stubRouter struct {
	endpoint *domain.ServiceEndpoint
	err      error
}

func (r *stubRouter) Route(context.Context, *domain.InternalRequest) (*domain.ServiceEndpoint, error) {
	return r.endpoint, r.err
}
func (r *stubRouter) UpdateRoutingTable([]*domain.ServiceInfo) {}
func (r *stubRouter) AddRule(domain.RoutingRule)               {}

type stubConnMgr struct {
	conn *domain.ManagedConnection
	err  error
}

func (m *stubConnMgr) GetConnection(context.Context, *domain.ServiceEndpoint) (*domain.ManagedConnection, error) {
	return m.conn, m.err
}
func (m *stubConnMgr) ReleaseConnection(*domain.ManagedConnection)                      {}
func (m *stubConnMgr) CloseConnections(*domain.ServiceEndpoint) error                   { return nil }
func (m *stubConnMgr) CloseAll() error                                                  { return nil }
func (m *stubConnMgr) ShutdownGracefully(context.Context, time.Duration) (int, error)   { return 0, nil }
func (m *stubConnMgr) GetPoolStats(*domain.ServiceEndpoint) domain.PoolStats            { return domain.PoolStats{} }
func (m *stubConnMgr) GetTotalStats() domain.PoolStats                                  { return domain.PoolStats{} }

type stubProtocol struct {
	response []byte
	err      error
	started  bool
	stopped  bool
}

func (p *stubProtocol) Start(context.Context) error { p.started = true; return nil }
func (p *stubProtocol) Stop(context.Context) error  { p.stopped = true; return nil }
func (p *stubProtocol) Invoke(context.Context, *domain.ManagedConnection, string, []byte) ([]byte, error) {
	return p.response, p.err
}

// stubSerializer round-trips through encoding/json so dispatch's
// encode-invoke-decode chain behaves the same as the real
// transport.JSONSerializer in tests.
type stubSerializer struct{}

func (stubSerializer) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (stubSerializer) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// envelopeBytes builds the wire bytes a stubProtocol should return so
// that dispatch's Serializer.Decode unpacks back to payload.
func envelopeBytes(payload []byte) []byte {
	b, _ := json.Marshal(wireEnvelope{Payload: payload})
	return b
}

type alwaysOpenBreaker struct{ allow bool }

func (b *alwaysOpenBreaker) AllowRequest() bool          { return b.allow }
func (b *alwaysOpenBreaker) RecordSuccess()              {}
func (b *alwaysOpenBreaker) RecordFailure()              {}
func (b *alwaysOpenBreaker) Reset()                      {}
func (b *alwaysOpenBreaker) Snapshot() domain.BreakerSnapshot { return domain.BreakerSnapshot{} }

type stubBreakerRegistry struct{ breaker ports.CircuitBreaker }

func (r *stubBreakerRegistry) Get(string) ports.CircuitBreaker { return r.breaker }

type passthroughRetry struct{}

func (passthroughRetry) Execute(ctx context.Context, policy domain.RetryPolicy, op func(context.Context) (any, error)) (any, error) {
	return op(ctx)
}

func newTestClient(protocol *stubProtocol, router ports.MessageRouter, connMgr ports.ConnectionManager, breaker ports.CircuitBreaker) *client {
	return &client{
		cfg: Config{
			Router:          router,
			ConnectionMgr:   connMgr,
			BreakerRegistry: &stubBreakerRegistry{breaker: breaker},
			RetryExecutor:   passthroughRetry{},
			Protocol:        protocol,
			Serializer:      stubSerializer{},
			RetryPolicy:     domain.DefaultRetryPolicy(),
			Strategy:        "round-robin",
			Logger:          testLogger(),
		},
		log:      testLogger(),
		handlers: make(map[string]ports.HandlerFunc),
	}
}

func TestClient_CallRequiresStart(t *testing.T) {
	c := newTestClient(&stubProtocol{}, &stubRouter{}, &stubConnMgr{}, &alwaysOpenBreaker{allow: true})
	_, err := c.Call(context.Background(), "billing", "Charge", nil)
	if err == nil {
		t.Fatal("expected error calling before Start")
	}
	fe := domain.AsFrameworkError(err)
	if fe.Kind != domain.ServiceUnavailable {
		t.Errorf("expected ServiceUnavailable, got %v", fe.Kind)
	}
}

func TestClient_CallDispatchesThroughRouterPoolAndProtocol(t *testing.T) {
	conn := domain.NewManagedConnection("c1", testEndpoint(), fakeChannel{})
	protocol := &stubProtocol{response: envelopeBytes([]byte("ok"))}
	c := newTestClient(protocol, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{conn: conn}, &alwaysOpenBreaker{allow: true})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := c.Call(context.Background(), "billing", "Charge", []byte("req"))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if string(resp) != "ok" {
		t.Errorf("expected ok, got %s", resp)
	}
	if !protocol.started {
		t.Error("expected protocol handler to have been started")
	}
}

func TestClient_CallFailsFastWhenBreakerOpen(t *testing.T) {
	c := newTestClient(&stubProtocol{}, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{}, &alwaysOpenBreaker{allow: false})
	c.running.Store(true)

	_, err := c.Call(context.Background(), "billing", "Charge", nil)
	if err == nil {
		t.Fatal("expected error when breaker refuses the request")
	}
	fe := domain.AsFrameworkError(err)
	if fe.Kind != domain.ServiceUnavailable {
		t.Errorf("expected ServiceUnavailable, got %v", fe.Kind)
	}
}

func TestClient_CallPropagatesRouterFailure(t *testing.T) {
	routeErr := domain.NewFrameworkError(domain.ServiceUnavailable, "no endpoints")
	c := newTestClient(&stubProtocol{}, &stubRouter{err: routeErr}, &stubConnMgr{}, &alwaysOpenBreaker{allow: true})
	c.running.Store(true)

	_, err := c.Call(context.Background(), "billing", "Charge", nil)
	if !errors.Is(err, routeErr) && domain.AsFrameworkError(err).Message != routeErr.Message {
		t.Errorf("expected router failure to propagate, got %v", err)
	}
}

func TestClient_RegisterServiceBypassesRoutingEntirely(t *testing.T) {
	c := newTestClient(&stubProtocol{}, &stubRouter{}, &stubConnMgr{}, &alwaysOpenBreaker{allow: true})
	c.running.Store(true)
	c.RegisterService("local-echo", func(_ context.Context, method string, payload []byte) ([]byte, error) {
		return append([]byte(method+":"), payload...), nil
	})

	resp, err := c.Call(context.Background(), "local-echo", "Ping", []byte("hi"))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if string(resp) != "Ping:hi" {
		t.Errorf("expected Ping:hi, got %s", resp)
	}
}

func TestClient_CallAsyncDeliversResultOnChannel(t *testing.T) {
	conn := domain.NewManagedConnection("c1", testEndpoint(), fakeChannel{})
	protocol := &stubProtocol{response: envelopeBytes([]byte("async-ok"))}
	c := newTestClient(protocol, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{conn: conn}, &alwaysOpenBreaker{allow: true})
	c.running.Store(true)

	ch, err := c.CallAsync(context.Background(), "billing", "Charge", nil)
	if err != nil {
		t.Fatalf("CallAsync failed: %v", err)
	}
	select {
	case result := <-ch:
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if string(result.Response) != "async-ok" {
			t.Errorf("expected async-ok, got %s", result.Response)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for CallAsync result")
	}
}

func TestClient_StreamDeliversSingleDoneItem(t *testing.T) {
	conn := domain.NewManagedConnection("c1", testEndpoint(), fakeChannel{})
	protocol := &stubProtocol{response: envelopeBytes([]byte("stream-ok"))}
	c := newTestClient(protocol, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{conn: conn}, &alwaysOpenBreaker{allow: true})
	c.running.Store(true)

	ch, err := c.Stream(context.Background(), "billing", "Charge", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	select {
	case item := <-ch:
		if !item.Done || item.Err != nil {
			t.Fatalf("expected a single done item with no error, got %+v", item)
		}
		if string(item.Data) != "stream-ok" {
			t.Errorf("expected stream-ok, got %s", item.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Stream result")
	}
}

func TestClient_ShutdownIsIdempotent(t *testing.T) {
	protocol := &stubProtocol{}
	c := newTestClient(protocol, &stubRouter{}, &stubConnMgr{}, &alwaysOpenBreaker{allow: true})
	c.running.Store(true)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown failed: %v", err)
	}
	if !protocol.stopped {
		t.Error("expected protocol handler to have been stopped")
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got: %v", err)
	}
}

func TestClient_DoubleStartFails(t *testing.T) {
	c := newTestClient(&stubProtocol{}, &stubRouter{}, &stubConnMgr{}, &alwaysOpenBreaker{allow: true})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

type fakeChannel struct{}

func (fakeChannel) Close() error { return nil }

type recordingBalancer struct {
	recorded []string
}

func (b *recordingBalancer) RecordCompletion(strategy string, endpoint *domain.ServiceEndpoint) {
	b.recorded = append(b.recorded, strategy+":"+endpoint.ServiceID)
}

func TestClient_RecordsCompletionOnSuccessAndFailure(t *testing.T) {
	recorder := &recordingBalancer{}
	conn := domain.NewManagedConnection("c1", testEndpoint(), fakeChannel{})

	okProtocol := &stubProtocol{response: envelopeBytes([]byte("ok"))}
	c := newTestClient(okProtocol, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{conn: conn}, &alwaysOpenBreaker{allow: true})
	c.cfg.CompletionRecorder = recorder
	c.cfg.Strategy = "least-connections"
	c.running.Store(true)

	if _, err := c.Call(context.Background(), "billing", "Charge", nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	failProtocol := &stubProtocol{err: domain.NewFrameworkError(domain.ProtocolError, "boom")}
	c2 := newTestClient(failProtocol, &stubRouter{endpoint: testEndpoint()}, &stubConnMgr{conn: conn}, &alwaysOpenBreaker{allow: true})
	c2.cfg.CompletionRecorder = recorder
	c2.cfg.Strategy = "least-connections"
	c2.cfg.RetryPolicy = domain.RetryPolicy{MaxAttempts: 1}
	c2.running.Store(true)

	if _, err := c2.Call(context.Background(), "billing", "Charge", nil); err == nil {
		t.Fatal("expected failure from protocol handler")
	}

	if len(recorder.recorded) != 2 {
		t.Fatalf("expected completion recorded for both success and failure, got %v", recorder.recorded)
	}
}
