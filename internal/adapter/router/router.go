// Package router implements ports.MessageRouter (spec §4.7): translate
// an InternalRequest into a concrete ServiceEndpoint via a priority-
// ordered rule table, registry fallback, and the configured
// LoadBalancer. Grounded on the teacher's
// adapter/registry.RoutingRegistry / adapter/registry/routing strategy
// split, which separates "how do we resolve a routing table" from
// "what do we do once we have one".
package router

import (
	"context"
	"fmt"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// Router is the default ports.MessageRouter implementation.
type Router struct {
	registry ports.Registry
	balancer ports.LoadBalancer
	strategy string
	log      logger.StyledLogger

	table *routingTable
}

var _ ports.MessageRouter = (*Router)(nil)

func NewRouter(registry ports.Registry, balancer ports.LoadBalancer, strategy string, log logger.StyledLogger) *Router {
	return &Router{
		registry: registry,
		balancer: balancer,
		strategy: strategy,
		log:      log,
		table:    newRoutingTable(),
	}
}

// Route resolves req to one ServiceEndpoint (spec §4.7): the first
// matching RoutingRule (by descending priority) decides the target
// service id/name; absent a match, req.Service is used directly.
// Endpoints are looked up from the non-blocking routing-table
// snapshot, falling back to a live registry discover when the
// snapshot has nothing cached for that name yet.
func (r *Router) Route(ctx context.Context, req *domain.InternalRequest) (*domain.ServiceEndpoint, error) {
	name := req.Service

	for _, rule := range r.table.snapshotRules() {
		if !rule.Matches(req) {
			continue
		}
		targetID, targetName := rule.Resolve(req)
		if targetID != "" {
			if ep := r.table.endpointByID(targetID); ep != nil {
				return ep, nil
			}
		}
		if targetName != "" {
			name = targetName
		}
		break
	}

	endpoints := r.table.endpointsByName(name)
	if len(endpoints) == 0 {
		discovered, err := r.registry.Discover(ctx, name, "")
		if err != nil {
			return nil, domain.NewFrameworkError(domain.ServiceUnavailable, fmt.Sprintf("router: no endpoints for service %q", name))
		}
		for _, svc := range discovered {
			protocol := ""
			if len(svc.Protocols) > 0 {
				protocol = svc.Protocols[0]
			}
			endpoints = append(endpoints, svc.ToEndpoint(protocol))
		}
	}
	if len(endpoints) == 0 {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, fmt.Sprintf("router: no endpoints for service %q", name))
	}

	endpoint, err := r.balancer.Select(ctx, r.strategy, endpoints)
	if err != nil {
		return nil, domain.WrapFrameworkError(domain.RoutingError, fmt.Sprintf("router: load balancer selection failed for %q", name), err)
	}
	if endpoint == nil {
		return nil, domain.NewFrameworkError(domain.ServiceUnavailable, fmt.Sprintf("router: no endpoints for service %q", name))
	}
	return endpoint, nil
}

// UpdateRoutingTable replaces the cached endpoint snapshot wholesale —
// called directly or from a registry Watch callback (spec §4.7).
func (r *Router) UpdateRoutingTable(services []*domain.ServiceInfo) {
	r.table.update(services)
}

// AddRule appends rule to the priority-ordered rule set.
func (r *Router) AddRule(rule domain.RoutingRule) {
	r.table.addRule(rule)
}
