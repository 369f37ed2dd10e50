package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// EtcdRegistry is the etcd-backed Registry (spec §4.1/§6): keys are
// laid out as "<namespace>/<serviceName>/<serviceId>" holding a JSON
// ServiceInfo, liveness is an etcd lease set to the configured TTL,
// and Watch subscribes to the "<namespace>/<serviceName>/" prefix.
// (NEW) — no direct equivalent in the teacher, which has no durable
// discovery backend; wired to complete spec §4.1's dual-backend
// requirement.
type EtcdRegistry struct {
	client    *clientv3.Client
	log       logger.StyledLogger
	namespace string
	ttl       time.Duration

	mu       sync.RWMutex
	leases   map[string]clientv3.LeaseID // serviceID -> lease
	watchers map[string][]*watcher
	nextW    uint64
	cancels  []context.CancelFunc
}

var _ ports.Registry = (*EtcdRegistry)(nil)

// EtcdConfig configures the etcd client used by EtcdRegistry.
type EtcdConfig struct {
	Endpoints   []string
	Namespace   string
	TTL         time.Duration
	DialTimeout time.Duration
}

// NewEtcdRegistry dials an etcd cluster and returns a Registry backed
// by it.
func NewEtcdRegistry(cfg EtcdConfig, log logger.StyledLogger) (*EtcdRegistry, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd registry: dial: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &EtcdRegistry{
		client:    cli,
		log:       log,
		namespace: cfg.Namespace,
		ttl:       ttl,
		leases:    make(map[string]clientv3.LeaseID),
		watchers:  make(map[string][]*watcher),
	}, nil
}

func (r *EtcdRegistry) key(name, id string) string {
	return fmt.Sprintf("%s/%s/%s", r.namespace, name, id)
}

func (r *EtcdRegistry) prefix(name string) string {
	return fmt.Sprintf("%s/%s/", r.namespace, name)
}

func (r *EtcdRegistry) Register(ctx context.Context, info *domain.ServiceInfo) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("registry: invalid service info: %w", err)
	}
	// A freshly registered instance always starts HEALTHY; only a
	// subsequent UpdateHealthStatus call may move it away.
	info.HealthStatus = domain.HealthHealthy

	lease, err := r.client.Grant(ctx, int64(r.ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("etcd registry: grant lease: %w", err)
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("etcd registry: marshal service info: %w", err)
	}

	if _, err := r.client.Put(ctx, r.key(info.Name, info.ID), string(payload), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("etcd registry: put: %w", err)
	}

	r.mu.Lock()
	r.leases[info.ID] = lease.ID
	r.mu.Unlock()

	r.log.InfoWithService("registered service in etcd", info.Name, "id", info.ID)
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, id string) error {
	r.mu.Lock()
	lease, ok := r.leases[id]
	delete(r.leases, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}
	_, err := r.client.Revoke(ctx, lease)
	if err != nil {
		return fmt.Errorf("etcd registry: revoke lease: %w", err)
	}
	return nil
}

func (r *EtcdRegistry) Heartbeat(ctx context.Context, id string) error {
	r.mu.RLock()
	lease, ok := r.leases[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}
	_, err := r.client.KeepAliveOnce(ctx, lease)
	if err != nil {
		return fmt.Errorf("etcd registry: keepalive: %w", err)
	}
	return nil
}

func (r *EtcdRegistry) Discover(ctx context.Context, name, version string) ([]*domain.ServiceInfo, error) {
	resp, err := r.client.Get(ctx, r.prefix(name), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd registry: get: %w", err)
	}

	out := make([]*domain.ServiceInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info domain.ServiceInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			continue
		}
		if version != "" && info.Version != version {
			continue
		}
		if !info.HealthStatus.IsDiscoverable() {
			continue
		}
		out = append(out, &info)
	}
	return out, nil
}

func (r *EtcdRegistry) UpdateHealthStatus(ctx context.Context, id string, status domain.HealthStatus) error {
	r.mu.RLock()
	lease, ok := r.leases[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: unknown service id %q", id)
	}

	resp, err := r.client.Get(ctx, "", clientv3.WithFromKey())
	if err != nil {
		return fmt.Errorf("etcd registry: lookup for health update: %w", err)
	}
	for _, kv := range resp.Kvs {
		var info domain.ServiceInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			continue
		}
		if info.ID != id {
			continue
		}
		info.HealthStatus = status
		payload, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("etcd registry: marshal service info: %w", err)
		}
		if _, err := r.client.Put(ctx, string(kv.Key), string(payload), clientv3.WithLease(lease)); err != nil {
			return fmt.Errorf("etcd registry: put health update: %w", err)
		}
		return nil
	}
	return fmt.Errorf("registry: unknown service id %q", id)
}

func (r *EtcdRegistry) Watch(ctx context.Context, name string, cb domain.WatchCallback) (domain.WatchCancel, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	instances, err := r.Discover(watchCtx, name, "")
	if err == nil {
		cb(instances)
	}

	watchCh := r.client.Watch(watchCtx, r.prefix(name), clientv3.WithPrefix())
	go func() {
		for range watchCh {
			instances, err := r.Discover(watchCtx, name, "")
			if err != nil {
				continue
			}
			cb(instances)
		}
	}()

	r.mu.Lock()
	r.cancels = append(r.cancels, cancel)
	r.mu.Unlock()

	return func() { cancel() }, nil
}

func (r *EtcdRegistry) Stats(ctx context.Context) (domain.RegistryStats, error) {
	resp, err := r.client.Get(ctx, r.namespace+"/", clientv3.WithPrefix())
	if err != nil {
		return domain.RegistryStats{}, fmt.Errorf("etcd registry: stats get: %w", err)
	}

	perName := make(map[string]int)
	for _, kv := range resp.Kvs {
		var info domain.ServiceInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			continue
		}
		perName[info.Name]++
	}

	return domain.RegistryStats{
		InstancesPerName: perName,
		TotalNames:       len(perName),
		TotalInstances:   len(resp.Kvs),
		LastUpdated:      time.Now(),
	}, nil
}

// Close cancels every lease this handle owns (spec §4.1 "close()
// cancels all leases owned by this registry handle") before closing
// the underlying etcd client, so registrations don't outlive it.
func (r *EtcdRegistry) Close() error {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
	leases := make([]clientv3.LeaseID, 0, len(r.leases))
	for id, lease := range r.leases {
		leases = append(leases, lease)
		delete(r.leases, id)
	}
	r.mu.Unlock()

	revokeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, lease := range leases {
		if _, err := r.client.Revoke(revokeCtx, lease); err != nil {
			r.log.Error("etcd registry: failed to revoke lease on close", "error", err)
		}
	}

	return r.client.Close()
}
