package ledger

import (
	"fmt"
	"sync"
)

// store maps account identifiers to live accounts. Its mutex only keeps map
// access safe under concurrent account creation; admission control for
// business mutation is the coordinator's job, not the store's.
type store struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

func newStore() *store {
	return &store{accounts: make(map[string]*Account)}
}

// insert adds a new account. Identifiers are generated by the service and
// unique, so there is nothing to collide with.
func (s *store) insert(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *store) get(id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return a, nil
}

// all returns the live accounts at the time of the call. Used by the
// consistency checker; callers must not mutate the entries.
func (s *store) all() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out
}
