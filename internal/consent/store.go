package consent

import (
	"context"
	"sync"
	"time"
)

// Store maps user identities to their decision.
//
// Record applies a decision only while the user is still unset. The first
// decision is final: later calls report the existing decision with applied
// set to false and leave the store untouched.
type Store interface {
	Get(ctx context.Context, userID int64) (Decision, error)
	Record(ctx context.Context, identity Identity, decision Decision, at time.Time) (Decision, bool, error)
}

// MemoryStore keeps decisions for the lifetime of the process.
type MemoryStore struct {
	decisions map[int64]Decision
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[int64]Decision),
	}
}

// Get returns the decision for the user or DecisionUnset if none was recorded.
func (s *MemoryStore) Get(_ context.Context, userID int64) (Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.decisions[userID], nil
}

// Record stores the decision if the user has not decided yet.
func (s *MemoryStore) Record(_ context.Context, identity Identity, decision Decision, _ time.Time) (Decision, bool, error) {
	if !decision.IsFinal() {
		return DecisionUnset, false, ErrInvalidDecision
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.decisions[identity.ID]; ok {
		return current, false, nil
	}

	s.decisions[identity.ID] = decision

	return decision, true, nil
}

// Len returns the number of users with a recorded decision.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.decisions)
}

// Count returns how many users recorded the given decision.
func (s *MemoryStore) Count(decision Decision) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0

	for _, d := range s.decisions {
		if d == decision {
			n++
		}
	}

	return n
}
