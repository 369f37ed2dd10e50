package balancer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/olla-project/framework/internal/core/domain"
)

// RandomSelector picks a uniformly random endpoint each call. It has
// no teacher equivalent (olla ships priority/round-robin/least-conn
// only); grounded on the teacher's PrioritySelector.weightedSelect
// rand.Intn fallback, generalised into its own standalone strategy.
type RandomSelector struct{}

func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

func (r *RandomSelector) Name() string { return DefaultBalancerRandom }

func (r *RandomSelector) Select(_ context.Context, endpoints []*domain.ServiceEndpoint) (*domain.ServiceEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("balancer: no endpoints available")
	}
	return endpoints[rand.Intn(len(endpoints))], nil
}

func (r *RandomSelector) RecordCompletion(*domain.ServiceEndpoint) {}
func (r *RandomSelector) RecordStart(*domain.ServiceEndpoint)      {}
