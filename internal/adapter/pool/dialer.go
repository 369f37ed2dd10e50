// Package pool implements ports.ConnectionPool and ports.ConnectionManager
// (spec §4.3/§4.4). Olla has no stateful connection pool of its own — it
// leans on net/http.Transport's pooling as a thin reverse proxy — so this
// subsystem is built fresh, grounded on the teacher's
// health.WorkerPool/HealthScheduler ticker-driven maintenance idiom and its
// structured StyledLogger use for state-transition logging.
package pool

import (
	"context"

	"github.com/olla-project/framework/internal/core/domain"
)

// Dialer opens a new raw transport to an endpoint. Concrete transports
// (net.Conn, *http.Client, ...) live behind domain.RawChannel; the pool
// never inspects what Dial returns beyond that interface.
type Dialer interface {
	Dial(ctx context.Context, endpoint *domain.ServiceEndpoint) (domain.RawChannel, error)
}

// DialerFunc adapts a plain function to a Dialer.
type DialerFunc func(ctx context.Context, endpoint *domain.ServiceEndpoint) (domain.RawChannel, error)

func (f DialerFunc) Dial(ctx context.Context, endpoint *domain.ServiceEndpoint) (domain.RawChannel, error) {
	return f(ctx, endpoint)
}
