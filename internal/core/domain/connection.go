package domain

import (
	"sync/atomic"
	"time"
)

// ConnectionState is the ManagedConnection lifecycle (spec §3):
// IDLE -> ACTIVE -> IDLE -> CLOSED, with CLOSED absorbing.
type ConnectionState int32

const (
	ConnIdle ConnectionState = iota
	ConnActive
	ConnClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnIdle:
		return "IDLE"
	case ConnActive:
		return "ACTIVE"
	case ConnClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// RawChannel is the raw transport handle a ManagedConnection wraps.
// The core never inspects it; ProtocolHandler implementations type-assert
// it to whatever concrete transport (net.Conn, *http.Client, ...) they need.
type RawChannel interface {
	Close() error
}

// ManagedConnection is a framework-owned wrapper around a raw
// transport with the state machine and invariants from spec §3:
// activeRequestCount >= 0; state == ACTIVE iff activeRequestCount > 0;
// CLOSED connections never re-enter the pool.
type ManagedConnection struct {
	CreatedAt  time.Time
	Channel    RawChannel
	Endpoint   *ServiceEndpoint
	ID         string

	lastUsedAt atomic.Int64 // unix nanos, updated on acquire and on release to IDLE
	state      atomic.Int32
	active     atomic.Int32 // activeRequestCount
	evictMark  atomic.Bool
}

// NewManagedConnection constructs a connection in the IDLE state.
func NewManagedConnection(id string, endpoint *ServiceEndpoint, channel RawChannel) *ManagedConnection {
	c := &ManagedConnection{
		ID:        id,
		Endpoint:  endpoint,
		Channel:   channel,
		CreatedAt: time.Now(),
	}
	c.state.Store(int32(ConnIdle))
	c.lastUsedAt.Store(time.Now().UnixNano())
	return c
}

// State returns the current lifecycle state.
func (c *ManagedConnection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ActiveRequestCount returns the current in-flight count on this connection.
func (c *ManagedConnection) ActiveRequestCount() int32 {
	return c.active.Load()
}

// LastUsedAt returns the last time this connection was activated or
// returned to IDLE.
func (c *ManagedConnection) LastUsedAt() time.Time {
	return time.Unix(0, c.lastUsedAt.Load())
}

// MarkEvictable flags this connection for removal at the next
// maintenance pass without forcibly closing an in-flight connection.
func (c *ManagedConnection) MarkEvictable() {
	c.evictMark.Store(true)
}

// EvictionMarked reports whether MarkEvictable was called.
func (c *ManagedConnection) EvictionMarked() bool {
	return c.evictMark.Load()
}

// TryActivate attempts IDLE -> ACTIVE and increments activeRequestCount.
// Returns false if the connection is CLOSED or eviction-marked — the
// pool must never hand out such a connection (spec §4.3).
func (c *ManagedConnection) TryActivate() bool {
	if c.State() == ConnClosed || c.EvictionMarked() {
		return false
	}
	c.active.Add(1)
	c.state.Store(int32(ConnActive))
	c.lastUsedAt.Store(time.Now().UnixNano())
	return true
}

// Release decrements activeRequestCount; when it reaches zero the
// connection returns to IDLE unless it has been closed. Never blocks
// (spec §4.3).
func (c *ManagedConnection) Release() {
	remaining := c.active.Add(-1)
	if remaining < 0 {
		// Defensive floor: a double-release must not corrupt the counter.
		c.active.Store(0)
		remaining = 0
	}
	if remaining == 0 && c.State() != ConnClosed {
		c.state.Store(int32(ConnIdle))
		c.lastUsedAt.Store(time.Now().UnixNano())
	}
}

// Close transitions the connection to the terminal CLOSED state and
// closes the underlying channel. Idempotent.
func (c *ManagedConnection) Close() error {
	if ConnectionState(c.state.Swap(int32(ConnClosed))) == ConnClosed {
		return nil
	}
	if c.Channel != nil {
		return c.Channel.Close()
	}
	return nil
}

// IsHealthy reports whether the connection is usable — not CLOSED and
// not eviction-marked.
func (c *ManagedConnection) IsHealthy() bool {
	return c.State() != ConnClosed && !c.EvictionMarked()
}
