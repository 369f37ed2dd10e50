package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/logger"
)

func testLogger() logger.StyledLogger {
	log, _, _ := logger.New(&logger.Config{Level: "error"})
	return *logger.NewStyledLogger(log, false)
}

func testEndpoint() *domain.ServiceEndpoint {
	return &domain.ServiceEndpoint{
		ServiceID:   "svc-1",
		ServiceName: "svc",
		Address:     "127.0.0.1",
		Port:        9000,
		Protocol:    "http",
	}
}

type fakeChannel struct {
	closed atomic.Bool
}

func (f *fakeChannel) Close() error {
	f.closed.Store(true)
	return nil
}

func countingDialer() (Dialer, *atomic.Int64) {
	var dials atomic.Int64
	d := DialerFunc(func(_ context.Context, _ *domain.ServiceEndpoint) (domain.RawChannel, error) {
		dials.Add(1)
		return &fakeChannel{}, nil
	})
	return d, &dials
}

func baseConfig() domain.PoolConfig {
	return domain.PoolConfig{
		MaxConnections:      2,
		MinConnections:      0,
		IdleTimeout:         50 * time.Millisecond,
		MaxLifetime:         time.Hour,
		ConnectionTimeout:   time.Second,
		HealthCheckInterval: 20 * time.Millisecond,
	}
}

func TestPool_AcquireOpensNewConnectionWhenNoneIdle(t *testing.T) {
	dialer, dials := countingDialer()
	p := NewPool(testEndpoint(), baseConfig(), dialer, testLogger())
	defer p.StopMaintenance()

	conn, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if conn.State() != domain.ConnActive {
		t.Errorf("expected ACTIVE, got %s", conn.State())
	}
	if dials.Load() != 1 {
		t.Errorf("expected 1 dial, got %d", dials.Load())
	}
}

func TestPool_ReleaseAllowsReuse(t *testing.T) {
	dialer, dials := countingDialer()
	p := NewPool(testEndpoint(), baseConfig(), dialer, testLogger())
	defer p.StopMaintenance()

	conn, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	p.Release(conn)

	conn2, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if conn2.ID != conn.ID {
		t.Error("expected the released connection to be reused")
	}
	if dials.Load() != 1 {
		t.Errorf("expected exactly 1 dial across both acquires, got %d", dials.Load())
	}
}

func TestPool_AcquireFailsTimeoutWhenSaturated(t *testing.T) {
	dialer, _ := countingDialer()
	cfg := baseConfig()
	cfg.MaxConnections = 1
	p := NewPool(testEndpoint(), cfg, dialer, testLogger())
	defer p.StopMaintenance()

	_, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	_, err = p.Acquire(context.Background(), time.Now().Add(30*time.Millisecond))
	if err == nil {
		t.Fatal("expected second Acquire to fail while pool saturated")
	}
	fe := domain.AsFrameworkError(err)
	if fe == nil || fe.Kind != domain.Timeout {
		t.Errorf("expected Timeout FrameworkError, got %v", err)
	}
}

func TestPool_NeverHandsOutClosedConnection(t *testing.T) {
	dialer, _ := countingDialer()
	p := NewPool(testEndpoint(), baseConfig(), dialer, testLogger())
	defer p.StopMaintenance()

	conn, _ := p.Acquire(context.Background(), time.Now().Add(time.Second))
	p.Release(conn)
	_ = conn.Close()

	conn2, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if conn2.ID == conn.ID {
		t.Error("pool handed out a CLOSED connection")
	}
}

func TestPool_IdleEvictionRespectsMinFloor(t *testing.T) {
	dialer, _ := countingDialer()
	cfg := baseConfig()
	cfg.MinConnections = 1
	cfg.IdleTimeout = 10 * time.Millisecond
	cfg.HealthCheckInterval = 10 * time.Millisecond
	p := NewPool(testEndpoint(), cfg, dialer, testLogger())
	defer p.StopMaintenance()

	c1, _ := p.Acquire(context.Background(), time.Now().Add(time.Second))
	c2, _ := p.Acquire(context.Background(), time.Now().Add(time.Second))
	p.Release(c1)
	p.Release(c2)

	time.Sleep(80 * time.Millisecond)

	stats := p.Stats()
	if stats.Idle != 1 {
		t.Errorf("expected min floor of 1 idle connection kept, got %d", stats.Idle)
	}
}

func TestPool_CloseDrainsIdleImmediatelyAndWaitsForActive(t *testing.T) {
	dialer, _ := countingDialer()
	p := NewPool(testEndpoint(), baseConfig(), dialer, testLogger())
	defer p.StopMaintenance()

	active, _ := p.Acquire(context.Background(), time.Now().Add(time.Second))
	idle, _ := p.Acquire(context.Background(), time.Now().Add(time.Second))
	p.Release(idle)

	done := p.Close()

	select {
	case <-done:
		t.Fatal("pool reported drained while a connection is still ACTIVE")
	case <-time.After(20 * time.Millisecond):
	}

	if idle.State() != domain.ConnClosed {
		t.Error("expected idle connection closed immediately on Close()")
	}

	p.Release(active)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool never reported fully drained")
	}
}

func TestPool_CloseFailsSubsequentAcquires(t *testing.T) {
	dialer, _ := countingDialer()
	p := NewPool(testEndpoint(), baseConfig(), dialer, testLogger())
	defer p.StopMaintenance()

	p.Close()

	_, err := p.Acquire(context.Background(), time.Now().Add(time.Second))
	if err == nil {
		t.Fatal("expected Acquire to fail on a draining pool")
	}
	fe := domain.AsFrameworkError(err)
	if fe == nil || fe.Kind != domain.ServiceUnavailable {
		t.Errorf("expected ServiceUnavailable, got %v", err)
	}
}
