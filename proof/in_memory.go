package proof

import (
	"errors"
	"sort"
	"sync"

	"github.com/mrarejimmyz/chatcore/core"
)

// ErrNotFound is returned when no receipt exists for the scope / id pair.
var ErrNotFound = errors.New("proof not found")

// InMemoryStore keeps receipts in a nested map guarded by an RWMutex. Data
// is copied on save and retrieval.
//
// Layout: scope -> proofID -> raw bytes
type InMemoryStore struct {
	mu     sync.RWMutex
	proofs map[string]map[string][]byte
}

var _ core.ProofStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{proofs: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the bytes for scope and id.
func (s *InMemoryStore) Save(scope, proofID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proofs[scope]; !ok {
		s.proofs[scope] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.proofs[scope][proofID] = cp
	return nil
}

// Get returns a copy of the stored bytes or ErrNotFound.
func (s *InMemoryStore) Get(scope, proofID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.proofs[scope][proofID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the sorted proof ids stored for scope.
func (s *InMemoryStore) List(scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.proofs[scope]))
	for id := range s.proofs[scope] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the receipt or returns ErrNotFound.
func (s *InMemoryStore) Delete(scope, proofID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.proofs[scope]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[proofID]; !ok {
		return ErrNotFound
	}
	delete(m, proofID)
	if len(m) == 0 {
		delete(s.proofs, scope)
	}
	return nil
}
