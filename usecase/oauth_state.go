package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const oauthStateTTL = 10 * time.Minute

// stateStore keeps OAuth state values in memory until they are consumed or
// expire.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time // state -> expiry
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{states: map[string]time.Time{}, ttl: ttl, now: time.Now}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *stateStore) Issue() string {
	state := randomState()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
	return state
}

// Consume reports whether state was issued and is still valid. A state can be
// consumed once.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return !s.now().After(exp)
}
