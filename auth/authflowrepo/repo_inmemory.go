package authflowrepo

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]*AuthFlowState
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewInMemoryRepo creates a repository whose states expire after ttl
func NewInMemoryRepo(ttl time.Duration, nowFunc func() time.Time) *InMemoryRepo {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		ttl:     ttl,
		nowFunc: nowFunc,
	}
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *authState
	r.states[state] = &stored
	return nil
}

func (r *InMemoryRepo) Consume(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.states, state)

	if r.expired(authState) {
		return nil, errors.Wrap(ErrStateNotFound, "expired")
	}
	stored := *authState
	return &stored, nil
}

// Cleanup drops states whose callback never arrived
func (r *InMemoryRepo) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for state, authState := range r.states {
		if r.expired(authState) {
			delete(r.states, state)
		}
	}
}

func (r *InMemoryRepo) expired(authState *AuthFlowState) bool {
	return r.ttl > 0 && r.nowFunc().Sub(authState.CreatedAt) > r.ttl
}

// Len reports how many states are pending
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
