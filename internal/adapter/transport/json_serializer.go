// Package transport ships default reference implementations of the
// ports.Serializer and ports.ProtocolHandler capabilities the core
// consumes but does not implement (spec §1 non-goals): enough to make
// the Client facade runnable end-to-end, not the full wire-protocol
// matrix (REST/WebSocket/MQTT/gRPC), which stays a non-goal.
package transport

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"

	"github.com/olla-project/framework/internal/core/ports"
	poolpkg "github.com/olla-project/framework/pkg/pool"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONSerializer is the default ports.Serializer, grounded on the
// teacher's own `var json = jsoniter.ConfigCompatibleWithStandardLibrary`
// convention (internal/adapter/registry/profile/parsers.go). Encode
// streams through a pooled *bytes.Buffer (pkg/pool.Pool[T], which
// already special-cases a Resettable type — bytes.Buffer's own
// Reset() satisfies it for free) so repeated Encode calls on a hot
// path reuse the underlying byte slice instead of allocating fresh.
type JSONSerializer struct {
	buffers *poolpkg.Pool[*bytes.Buffer]
}

var _ ports.Serializer = (*JSONSerializer)(nil)

func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		buffers: poolpkg.NewLitePool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 512))
		}),
	}
}

func (s *JSONSerializer) Encode(v any) ([]byte, error) {
	buf := s.buffers.Get()
	defer s.buffers.Put(buf)

	enc := json.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return bytes.TrimRight(out, "\n"), nil
}

func (s *JSONSerializer) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
