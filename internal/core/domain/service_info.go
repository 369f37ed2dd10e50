package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HealthStatus mirrors the registry's view of an instance's liveness.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "UNKNOWN"
	HealthHealthy   HealthStatus = "HEALTHY"
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// IsDiscoverable reports whether an instance in this status should be
// returned by Registry.discover (spec §3: "discoverable iff HEALTHY").
func (h HealthStatus) IsDiscoverable() bool {
	return h == HealthHealthy
}

// ServiceInfo is the endpoint descriptor stored by the registry.
type ServiceInfo struct {
	Metadata     map[string]string
	RegisteredAt time.Time
	ID           string
	Name         string
	Version      string
	Language     string
	Address      string
	Protocols    []string
	HealthStatus HealthStatus
	Port         int
}

// Validate checks the invariants register() must enforce: id, name,
// address and a positive port (spec §4.1).
func (s *ServiceInfo) Validate() error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Name == "" {
		return NewFrameworkError(BadRequest, "service name is required")
	}
	if s.Address == "" {
		return NewFrameworkError(BadRequest, "service address is required")
	}
	if s.Port <= 0 {
		return NewFrameworkError(BadRequest, fmt.Sprintf("service port must be > 0, got %d", s.Port))
	}
	return nil
}

// Clone returns a deep-enough copy safe to hand to callers without
// exposing registry-internal mutable state.
func (s *ServiceInfo) Clone() *ServiceInfo {
	if s == nil {
		return nil
	}
	meta := make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	protocols := make([]string, len(s.Protocols))
	copy(protocols, s.Protocols)

	clone := *s
	clone.Metadata = meta
	clone.Protocols = protocols
	return &clone
}

// ToEndpoint projects this registry record into the router's
// ServiceEndpoint view (spec §3: "derived, not persisted").
func (s *ServiceInfo) ToEndpoint(protocol string) *ServiceEndpoint {
	return &ServiceEndpoint{
		ServiceID:   s.ID,
		ServiceName: s.Name,
		Address:     s.Address,
		Port:        s.Port,
		Protocol:    protocol,
		Metadata:    s.Metadata,
	}
}
