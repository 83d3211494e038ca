package keychain

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of SecureStore for testing.
// Failures can be injected per operation or store-wide to simulate a locked
// or broken OS store.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string][]byte
	failAll  Status
	failOps  map[string]Status // "add", "update", "delete", "copy"
	addCalls int
}

// NewMemoryStore creates an empty in-memory secure store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string][]byte),
		failOps: make(map[string]Status),
	}
}

// FailWith makes every operation return the given status until Recover.
func (s *MemoryStore) FailWith(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = st
}

// FailOp makes a single operation ("add", "update", "delete", "copy")
// return the given status until Recover.
func (s *MemoryStore) FailOp(op string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps[op] = st
}

// Recover clears all injected failures.
func (s *MemoryStore) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = StatusSuccess
	s.failOps = make(map[string]Status)
}

// AddCalls returns how many times Add has been invoked, injected failures
// included. Tests use it to assert the add-then-update path.
func (s *MemoryStore) AddCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addCalls
}

func (s *MemoryStore) injected(op string) (Status, bool) {
	if s.failAll != StatusSuccess {
		return s.failAll, true
	}
	if st, ok := s.failOps[op]; ok {
		return st, true
	}
	return StatusSuccess, false
}

func (s *MemoryStore) Add(key string, payload []byte, attrs Attributes) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	if st, ok := s.injected("add"); ok {
		return st
	}
	if _, exists := s.items[key]; exists {
		return StatusDuplicateItem
	}
	s.items[key] = append([]byte(nil), payload...)
	return StatusSuccess
}

func (s *MemoryStore) Update(key string, payload []byte, attrs Attributes) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.injected("update"); ok {
		return st
	}
	if _, exists := s.items[key]; !exists {
		return StatusItemNotFound
	}
	s.items[key] = append([]byte(nil), payload...)
	return StatusSuccess
}

func (s *MemoryStore) Delete(key string, attrs Attributes) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.injected("delete"); ok {
		return st
	}
	if _, exists := s.items[key]; !exists {
		return StatusItemNotFound
	}
	delete(s.items, key)
	return StatusSuccess
}

func (s *MemoryStore) CopyMatching(key string, attrs Attributes) ([]byte, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.injected("copy"); ok {
		return nil, st
	}
	payload, exists := s.items[key]
	if !exists {
		return nil, StatusItemNotFound
	}
	return append([]byte(nil), payload...), StatusSuccess
}

// List returns all stored keys, sorted.
func (s *MemoryStore) List(attrs Attributes) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
