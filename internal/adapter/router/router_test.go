package router

import (
	"context"
	"testing"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

func testLogger() logger.StyledLogger {
	log, _, _ := logger.New(&logger.Config{Level: "error"})
	return *logger.NewStyledLogger(log, false)
}

type stubRegistry struct {
	ports.Registry
	byName map[string][]*domain.ServiceInfo
}

func (s *stubRegistry) Discover(_ context.Context, name, _ string) ([]*domain.ServiceInfo, error) {
	return s.byName[name], nil
}

type firstEndpointBalancer struct{}

func (firstEndpointBalancer) Select(_ context.Context, _ string, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}
	return endpoints[0], nil
}

func svcInfo(name, id string) *domain.ServiceInfo {
	return &domain.ServiceInfo{
		ID:           id,
		Name:         name,
		Address:      "127.0.0.1",
		Port:         8080,
		Protocols:    []string{"http"},
		HealthStatus: domain.HealthHealthy,
	}
}

func TestRouter_FallsThroughToServiceNameWhenNoRuleMatches(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{"billing": {svcInfo("billing", "1")}}}
	r := NewRouter(reg, firstEndpointBalancer{}, "round-robin", testLogger())

	ep, err := r.Route(context.Background(), &domain.InternalRequest{Service: "billing", Method: "Charge"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if ep.ServiceName != "billing" {
		t.Errorf("expected billing endpoint, got %s", ep.ServiceName)
	}
}

func TestRouter_FailsServiceUnavailableWhenNoEndpoints(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{}}
	r := NewRouter(reg, firstEndpointBalancer{}, "round-robin", testLogger())

	_, err := r.Route(context.Background(), &domain.InternalRequest{Service: "ghost"})
	if err == nil {
		t.Fatal("expected failure for unknown service")
	}
	fe := domain.AsFrameworkError(err)
	if fe.Kind != domain.ServiceUnavailable {
		t.Errorf("expected ServiceUnavailable, got %v", fe.Kind)
	}
}

func TestRouter_HighestPriorityRuleWinsAndRedirectsByName(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{
		"billing-v2": {svcInfo("billing-v2", "2")},
	}}
	r := NewRouter(reg, firstEndpointBalancer{}, "round-robin", testLogger())

	r.AddRule(domain.RoutingRule{
		Name:     "low-priority-noop",
		Priority: 1,
		Match:    func(*domain.InternalRequest) bool { return true },
		ResolveTarget: func(*domain.InternalRequest) (string, string) {
			t.Fatal("lower priority rule should not be consulted")
			return "", ""
		},
	})
	r.AddRule(domain.RoutingRule{
		Name:     "beta-redirect",
		Priority: 10,
		Match:    func(req *domain.InternalRequest) bool { return req.Metadata["beta"] == "true" },
		ResolveTarget: func(*domain.InternalRequest) (string, string) {
			return "", "billing-v2"
		},
	})

	ep, err := r.Route(context.Background(), &domain.InternalRequest{
		Service:  "billing",
		Metadata: map[string]string{"beta": "true"},
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if ep.ServiceName != "billing-v2" {
		t.Errorf("expected redirected billing-v2 endpoint, got %s", ep.ServiceName)
	}
}

func TestRouter_ExactIDResolutionBypassesBalancer(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{}}
	r := NewRouter(reg, firstEndpointBalancer{}, "round-robin", testLogger())
	r.UpdateRoutingTable([]*domain.ServiceInfo{svcInfo("billing", "exact-id")})

	r.AddRule(domain.RoutingRule{
		Name:     "pin-instance",
		Priority: 5,
		Match:    func(*domain.InternalRequest) bool { return true },
		ResolveTarget: func(*domain.InternalRequest) (string, string) {
			return "exact-id", ""
		},
	})

	ep, err := r.Route(context.Background(), &domain.InternalRequest{Service: "billing"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if ep.ServiceID != "exact-id" {
		t.Errorf("expected pinned instance exact-id, got %s", ep.ServiceID)
	}
}

func TestRouter_UpdateRoutingTableServesFromSnapshotWithoutRegistryCall(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{}}
	r := NewRouter(reg, firstEndpointBalancer{}, "round-robin", testLogger())
	r.UpdateRoutingTable([]*domain.ServiceInfo{svcInfo("cached-svc", "1")})

	ep, err := r.Route(context.Background(), &domain.InternalRequest{Service: "cached-svc"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if ep.ServiceName != "cached-svc" {
		t.Errorf("expected cached-svc, got %s", ep.ServiceName)
	}
}

func TestRouter_RoutingErrorWhenBalancerFails(t *testing.T) {
	reg := &stubRegistry{byName: map[string][]*domain.ServiceInfo{"billing": {svcInfo("billing", "1")}}}
	failingBalancer := ports.LoadBalancer(failingLB{})
	r := NewRouter(reg, failingBalancer, "round-robin", testLogger())

	_, err := r.Route(context.Background(), &domain.InternalRequest{Service: "billing"})
	if err == nil {
		t.Fatal("expected failure")
	}
	fe := domain.AsFrameworkError(err)
	if fe.Kind != domain.RoutingError {
		t.Errorf("expected RoutingError, got %v", fe.Kind)
	}
}

type failingLB struct{}

func (failingLB) Select(context.Context, string, []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	return nil, domain.NewFrameworkError(domain.BadRequest, "boom")
}
