package domain

import "context"

// ServiceEndpoint is the router's flattened view of a ServiceInfo
// instance — what's actually needed to dial and invoke, not the full
// registry record (spec §3: "derived, not persisted").
type ServiceEndpoint struct {
	Metadata    map[string]string
	ServiceID   string
	ServiceName string
	Address     string
	Protocol    string
	Port        int
}

// Key returns a stable identity used by pools/balancers/breakers to
// key per-endpoint state.
func (e *ServiceEndpoint) Key() string {
	return e.Protocol + "://" + e.Address + ":" + portString(e.Port)
}

func portString(p int) string {
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for p > 0 {
		i--
		buf[i] = digits[p%10]
		p /= 10
	}
	return string(buf[i:])
}

// InternalRequest is what the MessageRouter translates into a
// concrete ServiceEndpoint (spec §4.7).
type InternalRequest struct {
	Metadata map[string]string
	Service  string
	Method   string
	Payload  []byte
}

// RoutingRule is a priority-ordered predicate + target resolver
// consulted by the MessageRouter before falling through to a plain
// registry lookup by name (spec §3, §4.7).
type RoutingRule struct {
	Match        func(req *InternalRequest) bool
	ResolveTarget func(req *InternalRequest) (targetID string, targetName string)
	Name         string
	Priority     int

	// PayloadPath and PayloadEquals, when Match is nil, let a rule be
	// expressed declaratively: the rule matches when the JSON value at
	// PayloadPath (a gjson path evaluated against req.Payload) equals
	// PayloadEquals. Match always takes precedence when both are set.
	PayloadPath   string
	PayloadEquals string
	// JSONPathQuery and JSONPathEquals express predicates PayloadPath's
	// gjson syntax can't — filters, wildcards, recursive descent —
	// evaluated with github.com/PaesslerAG/jsonpath against the decoded
	// payload. Checked only when PayloadPath is empty.
	JSONPathQuery  string
	JSONPathEquals string
	// TargetName, when ResolveTarget is nil, is returned verbatim as
	// the resolved service name for a declarative rule.
	TargetName string
}

// Matches evaluates the rule's predicate, preferring the closure form,
// then the gjson declarative form, then the full-JSONPath form.
func (r *RoutingRule) Matches(req *InternalRequest) bool {
	if r.Match != nil {
		return r.Match(req)
	}
	if r.PayloadPath != "" {
		return matchPayloadPath(req.Payload, r.PayloadPath, r.PayloadEquals)
	}
	if r.JSONPathQuery != "" {
		return matchJSONPath(req.Payload, r.JSONPathQuery, r.JSONPathEquals)
	}
	return false
}

// Resolve evaluates the rule's target resolver, preferring the closure form.
func (r *RoutingRule) Resolve(req *InternalRequest) (targetID string, targetName string) {
	if r.ResolveTarget != nil {
		return r.ResolveTarget(req)
	}
	return "", r.TargetName
}

// EndpointSelector is the LoadBalancer contract (spec §4.2).
type EndpointSelector interface {
	Select(ctx context.Context, endpoints []*ServiceEndpoint) (*ServiceEndpoint, error)
	Name() string
	// RecordCompletion must be called once per completed request
	// (success or failure per spec §9's open-question resolution) so
	// stateful strategies (least-connections) can decrement in-flight
	// counts. Stateless strategies implement it as a no-op.
	RecordCompletion(endpoint *ServiceEndpoint)
	// RecordStart is called when a request is handed this endpoint,
	// so stateful strategies can increment in-flight counts.
	RecordStart(endpoint *ServiceEndpoint)
}
