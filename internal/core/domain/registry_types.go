package domain

import "time"

// RegistryStats is an observation-only snapshot of registry occupancy.
type RegistryStats struct {
	LastUpdated       time.Time
	InstancesPerName  map[string]int
	TotalNames        int
	TotalInstances    int
}

// WatchCallback is invoked with the current healthy-instance list on
// every add/remove/health-change for the watched name (spec §4.1).
// Callbacks for a given name are serialized; callbacks for different
// names may run concurrently (spec §5).
type WatchCallback func(instances []*ServiceInfo)

// WatchCancel releases a watch subscription.
type WatchCancel func()
