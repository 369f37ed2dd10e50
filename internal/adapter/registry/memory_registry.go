// Package registry provides Registry implementations (spec §4.1):
// an in-memory map + TTL-expiry reaper for tests/dev, and an
// etcd-backed implementation for production, behaviorally
// indistinguishable from one another.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

const defaultReapInterval = 5 * time.Second

type entry struct {
	info      *domain.ServiceInfo
	expiresAt time.Time
}

// watcher is one Watch subscription for a given service name.
type watcher struct {
	cb   domain.WatchCallback
	id   uint64
	name string
}

// MemoryRegistry is the in-memory Registry backend: a TTL-expiry map
// keyed by service id, plus a per-name watch fan-out, grounded on
// olla's adapter/registry.MemoryModelRegistry xsync+mutex shape.
type MemoryRegistry struct {
	entries    *xsync.Map[string, *entry] // id -> entry
	byName     *xsync.Map[string, *xsync.Map[string, struct{}]] // name -> set of ids
	log        logger.StyledLogger
	mu         sync.RWMutex // guards watchers
	watchers   map[string][]*watcher
	nextWatch  uint64
	ttl        time.Duration
	stopCh     chan struct{}
	reapTicker *time.Ticker
	closeOnce  sync.Once
}

var _ ports.Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry constructs a MemoryRegistry whose entries expire
// ttl after their last Register/Heartbeat unless ttl <= 0, in which
// case entries never expire from inactivity alone.
func NewMemoryRegistry(ttl time.Duration, log logger.StyledLogger) *MemoryRegistry {
	r := &MemoryRegistry{
		entries:  xsync.NewMap[string, *entry](),
		byName:   xsync.NewMap[string, *xsync.Map[string, struct{}]](),
		log:      log,
		watchers: make(map[string][]*watcher),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	r.reapTicker = time.NewTicker(defaultReapInterval)
	go r.reapLoop()
	return r
}

func (r *MemoryRegistry) reapLoop() {
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.reapTicker.C:
			r.reapExpired()
		}
	}
}

// isExpired reports whether e's lease has already passed its
// expiresAt deadline. A zero expiresAt means the lease never expires
// (ttl <= 0 config).
func (r *MemoryRegistry) isExpired(e *entry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

func (r *MemoryRegistry) reapExpired() {
	var expired []string
	var names []string
	r.entries.Range(func(id string, e *entry) bool {
		if r.isExpired(e) {
			expired = append(expired, id)
			names = append(names, e.info.Name)
		}
		return true
	})
	for i, id := range expired {
		r.removeEntry(id)
		r.log.WarnWithService("service lease expired", names[i])
		r.notifyWatchers(names[i])
	}
}

func (r *MemoryRegistry) removeEntry(id string) {
	e, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return
	}
	if set, ok := r.byName.Load(e.info.Name); ok {
		set.Delete(id)
	}
}

func (r *MemoryRegistry) leaseFor() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(r.ttl)
}

func (r *MemoryRegistry) Register(ctx context.Context, info *domain.ServiceInfo) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("registry: invalid service info: %w", err)
	}
	// A freshly registered instance always starts HEALTHY (spec §4.1);
	// only a subsequent UpdateHealthStatus call may move it away.
	info.HealthStatus = domain.HealthHealthy

	r.entries.Store(info.ID, &entry{info: info.Clone(), expiresAt: r.leaseFor()})

	set, _ := r.byName.LoadOrCompute(info.Name, func() (*xsync.Map[string, struct{}], bool) {
		return xsync.NewMap[string, struct{}](), false
	})
	set.Store(info.ID, struct{}{})

	r.log.InfoWithService("registered service", info.Name, "id", info.ID)
	r.notifyWatchers(info.Name)
	return nil
}

func (r *MemoryRegistry) Deregister(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	e, ok := r.entries.Load(id)
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}
	name := e.info.Name
	r.removeEntry(id)
	r.notifyWatchers(name)
	return nil
}

func (r *MemoryRegistry) Heartbeat(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	e, ok := r.entries.Load(id)
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}
	if r.isExpired(e) {
		name := e.info.Name
		r.removeEntry(id)
		r.notifyWatchers(name)
		return domain.NewFrameworkErrorWithService(domain.NotFound, "registry: lease already expired", id)
	}
	e.expiresAt = r.leaseFor()
	return nil
}

func (r *MemoryRegistry) Discover(ctx context.Context, name, version string) ([]*domain.ServiceInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	set, ok := r.byName.Load(name)
	if !ok {
		return []*domain.ServiceInfo{}, nil
	}

	var out []*domain.ServiceInfo
	set.Range(func(id string, _ struct{}) bool {
		e, ok := r.entries.Load(id)
		if !ok {
			return true
		}
		if r.isExpired(e) {
			return true
		}
		if version != "" && e.info.Version != version {
			return true
		}
		if !e.info.HealthStatus.IsDiscoverable() {
			return true
		}
		out = append(out, e.info.Clone())
		return true
	})
	return out, nil
}

func (r *MemoryRegistry) UpdateHealthStatus(ctx context.Context, id string, status domain.HealthStatus) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	e, ok := r.entries.Load(id)
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}
	e.info.HealthStatus = status
	r.notifyWatchers(e.info.Name)
	return nil
}

func (r *MemoryRegistry) Watch(ctx context.Context, name string, cb domain.WatchCallback) (domain.WatchCancel, error) {
	r.mu.Lock()
	r.nextWatch++
	id := r.nextWatch
	w := &watcher{cb: cb, id: id, name: name}
	r.watchers[name] = append(r.watchers[name], w)
	r.mu.Unlock()

	instances, err := r.Discover(ctx, name, "")
	if err == nil {
		cb(instances)
	}

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.watchers[name]
		for i, existing := range list {
			if existing.id == id {
				r.watchers[name] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return cancel, nil
}

func (r *MemoryRegistry) notifyWatchers(name string) {
	r.mu.RLock()
	list := append([]*watcher(nil), r.watchers[name]...)
	r.mu.RUnlock()
	if len(list) == 0 {
		return
	}
	instances, err := r.Discover(context.Background(), name, "")
	if err != nil {
		return
	}
	for _, w := range list {
		w.cb(instances)
	}
}

func (r *MemoryRegistry) Stats(ctx context.Context) (domain.RegistryStats, error) {
	select {
	case <-ctx.Done():
		return domain.RegistryStats{}, ctx.Err()
	default:
	}

	perName := make(map[string]int)
	total := 0
	r.byName.Range(func(name string, set *xsync.Map[string, struct{}]) bool {
		count := 0
		set.Range(func(_ string, _ struct{}) bool {
			count++
			return true
		})
		if count > 0 {
			perName[name] = count
			total += count
		}
		return true
	})

	return domain.RegistryStats{
		InstancesPerName: perName,
		TotalNames:       len(perName),
		TotalInstances:   total,
		LastUpdated:      time.Now(),
	}, nil
}

// Close cancels every lease owned by this registry handle (spec
// §4.1) in addition to stopping the background reaper: the in-memory
// backend's equivalent of revoking etcd leases on shutdown.
func (r *MemoryRegistry) Close() error {
	r.closeOnce.Do(func() {
		r.reapTicker.Stop()
		close(r.stopCh)

		var ids, names []string
		r.entries.Range(func(id string, e *entry) bool {
			ids = append(ids, id)
			names = append(names, e.info.Name)
			return true
		})
		for i, id := range ids {
			r.removeEntry(id)
			r.notifyWatchers(names[i])
		}
	})
	return nil
}
