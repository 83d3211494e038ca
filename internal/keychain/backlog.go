package keychain

import (
	"sort"
	"sync"
)

// Backlog is the in-memory write-behind ledger: the most recent payload
// intended for each key whose write the OS store has not yet accepted.
// At most one entry exists per key; a newer write before flush replaces the
// older pending payload. Safe for concurrent use.
type Backlog struct {
	mu      sync.RWMutex
	pending map[string][]byte
}

// BacklogEntry is one pending write in a Snapshot.
type BacklogEntry struct {
	Key     string
	Payload []byte
}

// NewBacklog creates an empty backlog.
func NewBacklog() *Backlog {
	return &Backlog{pending: make(map[string][]byte)}
}

// Set records payload as the pending write for key, replacing any earlier
// pending payload.
func (b *Backlog) Set(key string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[key] = append([]byte(nil), payload...)
}

// Remove clears the pending entry for key, if any.
func (b *Backlog) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, key)
}

// Get returns a copy of the pending payload for key.
func (b *Backlog) Get(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	payload, ok := b.pending[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}

// Len returns the number of pending entries.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending)
}

// Empty is the fast-path check used to skip flush attempts.
func (b *Backlog) Empty() bool {
	return b.Len() == 0
}

// Snapshot returns a stable-ordered copy of all pending entries. Iterating
// the result never observes concurrent mutation of the backlog.
func (b *Backlog) Snapshot() []BacklogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := make([]BacklogEntry, 0, len(b.pending))
	for k, v := range b.pending {
		entries = append(entries, BacklogEntry{Key: k, Payload: append([]byte(nil), v...)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
