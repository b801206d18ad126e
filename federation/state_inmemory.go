package federation

import (
	"context"
	"sync"
)

var _ StateRepo = (*InMemoryStateRepo)(nil)

// InMemoryStateRepo backs federation tests.
type InMemoryStateRepo struct {
	lock  sync.Mutex
	flows map[string]FlowState
}

func NewInMemoryStateRepo() *InMemoryStateRepo {
	return &InMemoryStateRepo{flows: make(map[string]FlowState)}
}

func (r *InMemoryStateRepo) Save(_ context.Context, state string, flow *FlowState) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.flows[state] = *flow
	return nil
}

func (r *InMemoryStateRepo) Take(_ context.Context, state string) (*FlowState, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	flow, ok := r.flows[state]
	if !ok {
		return nil, StateNotFoundErr
	}
	delete(r.flows, state)
	return &flow, nil
}
