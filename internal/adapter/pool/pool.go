package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// Pool is the per-endpoint ConnectionPool (spec §4.3): a bounded
// semaphore of size config.MaxConnections guarding a set of warm
// domain.ManagedConnection instances, with a ticker-driven maintenance
// goroutine applying the four-step eviction policy.
type Pool struct {
	endpoint *domain.ServiceEndpoint
	config   domain.PoolConfig
	dialer   Dialer
	log      logger.StyledLogger

	sem *semaphore.Weighted

	mu          sync.Mutex
	connections []*domain.ManagedConnection

	draining atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ ports.ConnectionPool = (*Pool)(nil)

// NewPool constructs a pool for one endpoint and starts its
// maintenance goroutine, grounded on the teacher's
// WorkerPool.Start/Stop stopCh+WaitGroup idiom.
func NewPool(endpoint *domain.ServiceEndpoint, cfg domain.PoolConfig, dialer Dialer, log logger.StyledLogger) *Pool {
	p := &Pool{
		endpoint: endpoint,
		config:   cfg,
		dialer:   dialer,
		log:      log,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConnections)),
		stopCh:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.maintenanceLoop()
	return p
}

// Acquire selects an IDLE healthy connection or opens a new one,
// bounded by the MaxConnections semaphore, and fails Timeout if
// neither path yields a connection before deadline (spec §4.3).
func (p *Pool) Acquire(ctx context.Context, deadline time.Time) (*domain.ManagedConnection, error) {
	if p.draining.Load() {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, "connection pool: draining")
	}

	acquireCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		return nil, domain.NewFrameworkError(domain.Timeout, "connection pool: acquire deadline exceeded")
	}

	if conn := p.reuseIdle(); conn != nil {
		return conn, nil
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, p.config.ConnectionTimeout)
	defer dialCancel()

	channel, err := p.dialer.Dial(dialCtx, p.endpoint)
	if err != nil {
		p.sem.Release(1)
		if fe, ok := err.(*domain.FrameworkError); ok {
			return nil, fe
		}
		return nil, domain.WrapFrameworkError(domain.ConnectionError, "connection pool: dial failed", err)
	}

	conn := domain.NewManagedConnection(uuid.NewString(), p.endpoint, channel)
	conn.TryActivate()

	p.mu.Lock()
	p.connections = append(p.connections, conn)
	p.mu.Unlock()

	p.log.Debug("opened new pooled connection", "endpoint", p.endpoint.Key(), "connectionId", conn.ID)
	return conn, nil
}

func (p *Pool) reuseIdle() *domain.ManagedConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.connections {
		if c.State() == domain.ConnIdle && c.IsHealthy() && c.TryActivate() {
			return c
		}
	}
	return nil
}

// Release decrements the connection's activeRequestCount and frees
// its semaphore slot. If the pool is draining and the connection went
// IDLE, it is closed immediately rather than left for the next
// maintenance pass (spec §4.3's close() contract).
func (p *Pool) Release(conn *domain.ManagedConnection) {
	conn.Release()
	p.sem.Release(1)

	if p.draining.Load() && conn.State() == domain.ConnIdle {
		_ = conn.Close()
	}
}

// Close marks the pool as draining — subsequent Acquire calls fail
// ServiceUnavailable — closes IDLE connections immediately, and
// returns a channel that closes once every connection has reached
// CLOSED (spec §4.3).
func (p *Pool) Close() <-chan struct{} {
	p.draining.Store(true)

	p.mu.Lock()
	for _, c := range p.connections {
		if c.State() == domain.ConnIdle {
			_ = c.Close()
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go p.waitDrained(done)
	return done
}

func (p *Pool) waitDrained(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.allClosed() {
			return
		}
		select {
		case <-ticker.C:
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) allClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.connections {
		if c.State() != domain.ConnClosed {
			return false
		}
	}
	return true
}

// Stats returns a consistent snapshot of total/active/idle counts,
// excluding connections already reaped to CLOSED (spec §4.4).
func (p *Pool) Stats() domain.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stats domain.PoolStats
	for _, c := range p.connections {
		switch c.State() {
		case domain.ConnActive:
			stats.Active++
			stats.Total++
		case domain.ConnIdle:
			stats.Idle++
			stats.Total++
		}
	}
	return stats
}

// StopMaintenance halts the background eviction goroutine. Called by
// the owning ConnectionManager once a pool's connections have fully
// drained, to avoid leaking the goroutine (spec §4.4 shutdownGracefully).
func (p *Pool) StopMaintenance() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Pool) maintenanceLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runMaintenance()
		}
	}
}

// runMaintenance applies the four ordered eviction steps (spec §4.3):
// drop CLOSED connections, drop unhealthy/eviction-marked IDLE ones,
// evict idle connections past idleTimeout while keeping minConnections
// warm, and evict connections past maxLifetime (deferred to release
// if ACTIVE).
func (p *Pool) runMaintenance() {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.connections {
		if c.State() == domain.ConnIdle && c.EvictionMarked() {
			_ = c.Close()
		}
	}

	var idle []*domain.ManagedConnection
	for _, c := range p.connections {
		if c.State() == domain.ConnIdle {
			idle = append(idle, c)
		}
	}
	idleCount := len(idle)
	for _, c := range idle {
		if idleCount <= p.config.MinConnections {
			break
		}
		if now.Sub(c.LastUsedAt()) > p.config.IdleTimeout {
			_ = c.Close()
			idleCount--
		}
	}

	for _, c := range p.connections {
		if now.Sub(c.CreatedAt) <= p.config.MaxLifetime {
			continue
		}
		switch c.State() {
		case domain.ConnIdle:
			_ = c.Close()
		case domain.ConnActive:
			c.MarkEvictable()
		}
	}

	kept := p.connections[:0]
	for _, c := range p.connections {
		if c.State() != domain.ConnClosed {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(p.connections) {
		p.log.Debug("reaped pooled connections", "endpoint", p.endpoint.Key(), "removed", len(p.connections)-len(kept))
	}
	p.connections = kept
}
