package domain

import "time"

// PoolConfig configures a single endpoint's ConnectionPool (spec §4.3).
type PoolConfig struct {
	MaxConnections        int
	MinConnections        int
	IdleTimeout           time.Duration
	MaxLifetime           time.Duration
	ConnectionTimeout     time.Duration
	HealthCheckInterval   time.Duration
	KeepAlive             bool
	TCPNoDelay            bool
}

// DefaultPoolConfig mirrors the teacher's endpoint check-interval/timeout
// defaults (olla's EndpointConfig), generalised to a connection pool.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:      10,
		MinConnections:      0,
		IdleTimeout:         90 * time.Second,
		MaxLifetime:         30 * time.Minute,
		ConnectionTimeout:   5 * time.Second,
		HealthCheckInterval: 10 * time.Second,
		KeepAlive:           true,
		TCPNoDelay:          true,
	}
}

// Validate enforces 0 <= minConnections <= maxConnections (spec §4.3).
func (c PoolConfig) Validate() error {
	if c.MaxConnections <= 0 {
		return NewFrameworkError(BadRequest, "connectionPool.max must be > 0")
	}
	if c.MinConnections < 0 {
		return NewFrameworkError(BadRequest, "connectionPool.min must be >= 0")
	}
	if c.MinConnections > c.MaxConnections {
		return NewFrameworkError(BadRequest, "connectionPool.min must be <= connectionPool.max")
	}
	return nil
}

// PoolStats is the observation-only snapshot returned by
// ConnectionManager.getPoolStats / getTotalStats (spec §4.4).
type PoolStats struct {
	Total  int
	Active int
	Idle   int
}
