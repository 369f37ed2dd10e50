package router

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/olla-project/framework/internal/core/domain"
)

// routingTable holds the priority-ordered rule set and a name-indexed
// endpoint snapshot behind atomic.Pointer, so Route's reads never
// block a concurrent updateRoutingTable/AddRule writer and always
// observe a monotonically-advancing snapshot (spec §4.7) — grounded on
// the teacher's routing strategy split ("how do we resolve a routing
// table" vs "what do we do once we have one").
type routingTable struct {
	rules    atomic.Pointer[[]domain.RoutingRule]
	services atomic.Pointer[map[string][]*domain.ServiceEndpoint]

	writeMu sync.Mutex
}

func newRoutingTable() *routingTable {
	t := &routingTable{}
	empty := []domain.RoutingRule{}
	t.rules.Store(&empty)
	emptySvc := map[string][]*domain.ServiceEndpoint{}
	t.services.Store(&emptySvc)
	return t
}

func (t *routingTable) snapshotRules() []domain.RoutingRule {
	return *t.rules.Load()
}

func (t *routingTable) snapshotServices() map[string][]*domain.ServiceEndpoint {
	return *t.services.Load()
}

// addRule inserts rule and re-sorts the rule set by descending
// priority. Serialised against concurrent writers; readers are never
// blocked by the atomic.Pointer swap.
func (t *routingTable) addRule(rule domain.RoutingRule) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	current := t.snapshotRules()
	next := make([]domain.RoutingRule, len(current), len(current)+1)
	copy(next, current)
	next = append(next, rule)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Priority > next[j].Priority })
	t.rules.Store(&next)
}

// update replaces the endpoint snapshot wholesale, grouped by service
// name, from a fresh services list (spec §4.7 updateRoutingTable).
func (t *routingTable) update(services []*domain.ServiceInfo) {
	next := make(map[string][]*domain.ServiceEndpoint, len(services))
	for _, s := range services {
		if !s.HealthStatus.IsDiscoverable() {
			continue
		}
		protocol := ""
		if len(s.Protocols) > 0 {
			protocol = s.Protocols[0]
		}
		next[s.Name] = append(next[s.Name], s.ToEndpoint(protocol))
	}
	t.services.Store(&next)
}

// endpointByID scans the current snapshot for an exact ServiceID
// match, used by Route's resolveTarget(serviceId) fast path.
func (t *routingTable) endpointByID(id string) *domain.ServiceEndpoint {
	if id == "" {
		return nil
	}
	for _, endpoints := range t.snapshotServices() {
		for _, ep := range endpoints {
			if ep.ServiceID == id {
				return ep
			}
		}
	}
	return nil
}

func (t *routingTable) endpointsByName(name string) []*domain.ServiceEndpoint {
	return t.snapshotServices()[name]
}
