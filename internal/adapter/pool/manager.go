package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// Manager implements ports.ConnectionManager: endpoint -> Pool, plus
// cross-pool lifecycle (spec §4.4). Graceful shutdown fans the
// per-pool drain out concurrently with golang.org/x/sync/errgroup,
// grounded on the teacher's discovery.Service use of errgroup for
// concurrent endpoint operations.
type Manager struct {
	config domain.PoolConfig
	dialer Dialer
	log    logger.StyledLogger

	mu    sync.RWMutex
	pools map[string]*Pool
}

var _ ports.ConnectionManager = (*Manager)(nil)

func NewManager(cfg domain.PoolConfig, dialer Dialer, log logger.StyledLogger) *Manager {
	return &Manager{
		config: cfg,
		dialer: dialer,
		log:    log,
		pools:  make(map[string]*Pool),
	}
}

func (m *Manager) poolFor(endpoint *domain.ServiceEndpoint) *Pool {
	key := endpoint.Key()

	m.mu.RLock()
	p, ok := m.pools[key]
	m.mu.RUnlock()
	if ok {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok = m.pools[key]; ok {
		return p
	}
	p = NewPool(endpoint, m.config, m.dialer, m.log)
	m.pools[key] = p
	return p
}

func (m *Manager) GetConnection(ctx context.Context, endpoint *domain.ServiceEndpoint) (*domain.ManagedConnection, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(m.config.ConnectionTimeout)
	}
	return m.poolFor(endpoint).Acquire(ctx, deadline)
}

func (m *Manager) ReleaseConnection(conn *domain.ManagedConnection) {
	if conn == nil || conn.Endpoint == nil {
		return
	}
	m.mu.RLock()
	p, ok := m.pools[conn.Endpoint.Key()]
	m.mu.RUnlock()
	if ok {
		p.Release(conn)
	}
}

func (m *Manager) CloseConnections(endpoint *domain.ServiceEndpoint) error {
	key := endpoint.Key()

	m.mu.Lock()
	p, ok := m.pools[key]
	if ok {
		delete(m.pools, key)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	<-p.Close()
	p.StopMaintenance()
	return nil
}

func (m *Manager) CloseAll() error {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for k, p := range m.pools {
		pools = append(pools, p)
		delete(m.pools, k)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, p := range pools {
		p := p
		g.Go(func() error {
			<-p.Close()
			p.StopMaintenance()
			return nil
		})
	}
	return g.Wait()
}

// ShutdownGracefully closes every pool concurrently with a deadline;
// pools not fully drained within timeout count toward failed (spec §4.4).
func (m *Manager) ShutdownGracefully(ctx context.Context, timeout time.Duration) (int, error) {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for k, p := range m.pools {
		pools = append(pools, p)
		delete(m.pools, k)
	}
	m.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var failed int
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(shutdownCtx)
	for _, p := range pools {
		p := p
		g.Go(func() error {
			done := p.Close()
			select {
			case <-done:
				p.StopMaintenance()
			case <-gctx.Done():
				// Timed out waiting for the pool to drain: force it
				// closed so its maintenance ticker and waitDrained
				// goroutine don't leak past this deadline.
				p.StopMaintenance()
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	return failed, err
}

func (m *Manager) GetPoolStats(endpoint *domain.ServiceEndpoint) domain.PoolStats {
	m.mu.RLock()
	p, ok := m.pools[endpoint.Key()]
	m.mu.RUnlock()
	if !ok {
		return domain.PoolStats{}
	}
	return p.Stats()
}

func (m *Manager) GetTotalStats() domain.PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total domain.PoolStats
	for _, p := range m.pools {
		s := p.Stats()
		total.Total += s.Total
		total.Active += s.Active
		total.Idle += s.Idle
	}
	return total
}
