package keychain

import (
	"hash/fnv"
	"log/slog"
	"sync"
)

// keyLockStripes is the number of mutexes same-key serialization is striped
// across. Operations on different keys almost always proceed independently;
// operations on the same key never interleave.
const keyLockStripes = 64

// Manager orchestrates reads, writes, and deletes against a SecureStore,
// absorbing transient availability failures into a write-behind Backlog and
// replaying pending writes on Flush.
//
// The logical current value for a key is the backlog entry if one exists,
// otherwise the value in the OS store. Reads always honor that order, so a
// deferred write is visible immediately even though it is not yet durable.
type Manager struct {
	store   SecureStore
	attrs   Attributes
	backlog *Backlog
	report  ReportFunc
	logger  *slog.Logger
	locks   [keyLockStripes]sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithReport sets the failure telemetry callback.
func WithReport(fn ReportFunc) Option {
	return func(m *Manager) {
		m.report = fn
	}
}

// WithLogger sets the structured logger. Defaults to slog's default logger
// scoped with component=keychain.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager over the given store. The attributes are
// applied uniformly to every item the Manager touches.
func NewManager(store SecureStore, attrs Attributes, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		attrs:   attrs,
		backlog: NewBacklog(),
		logger:  slog.With("component", "keychain"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.locks[h.Sum32()%keyLockStripes]
}

func (m *Manager) reportFailure(op AccessType, err error) {
	if m.report != nil {
		m.report(op, err)
	}
}

// Retrieve returns the logical current value for key, or (nil, nil) when no
// item exists. The backlog wins over the OS store.
func (m *Manager) Retrieve(key string) ([]byte, error) {
	if payload, ok := m.backlog.Get(key); ok {
		return payload, nil
	}

	mu := m.lock(key)
	mu.Lock()
	payload, status := m.store.CopyMatching(key, m.attrs)
	mu.Unlock()

	switch status {
	case StatusSuccess:
		if len(payload) == 0 {
			// Item exists but carries no decodable payload.
			m.reportFailure(AccessRetrieve, ErrCorruptData)
			return nil, ErrCorruptData
		}
		return payload, nil
	case StatusItemNotFound:
		return nil, nil
	case StatusDecode:
		// The item is there but the backend could not decode its payload.
		m.reportFailure(AccessRetrieve, ErrCorruptData)
		return nil, ErrCorruptData
	default:
		err := &AccessError{Kind: FailureLookup, Status: status}
		m.reportFailure(AccessRetrieve, err)
		return nil, err
	}
}

// Store writes data under key. Nil or empty data deletes the item.
//
// Transient availability failures are not surfaced: the payload is parked in
// the backlog, the call succeeds, and a later Flush makes it durable. Only
// non-transient store failures become errors.
func (m *Manager) Store(key string, data []byte) error {
	if len(data) == 0 {
		return m.Delete(key)
	}

	mu := m.lock(key)
	mu.Lock()
	defer mu.Unlock()

	status := m.writeItem(key, data)
	switch {
	case status == StatusSuccess:
		m.backlog.Remove(key)
		return nil
	case status.Transient():
		m.backlog.Set(key, data)
		m.logger.Debug("write deferred, store unavailable", "key", key, "status", status.String())
		return nil
	default:
		err := &AccessError{Kind: FailureSave, Status: status}
		m.reportFailure(AccessStore, err)
		return err
	}
}

// writeItem attempts add, retrying as update when the item already exists.
// Returns the final status of whichever path ran. Callers hold the key lock.
func (m *Manager) writeItem(key string, data []byte) Status {
	status := m.store.Add(key, data, m.attrs)
	if status == StatusDuplicateItem {
		// Expected on re-save, not an error.
		status = m.store.Update(key, data, m.attrs)
	}
	return status
}

// Delete removes the item for key. Pending backlog writes for the key are
// discarded first. A missing item is success; delete is idempotent.
func (m *Manager) Delete(key string) error {
	mu := m.lock(key)
	mu.Lock()
	defer mu.Unlock()

	m.backlog.Remove(key)

	status := m.store.Delete(key, m.attrs)
	if status == StatusSuccess || status == StatusItemNotFound {
		return nil
	}
	err := &AccessError{Kind: FailureDelete, Status: status}
	m.reportFailure(AccessDelete, err)
	return err
}

// Pending returns the number of writes waiting in the backlog.
func (m *Manager) Pending() int {
	return m.backlog.Len()
}

// IsPending reports whether a write for key is waiting in the backlog.
func (m *Manager) IsPending(key string) bool {
	_, ok := m.backlog.Get(key)
	return ok
}

// Flush replays pending backlog writes into the OS store. Entries are
// removed only on success; one key failing never blocks the rest. Safe to
// invoke redundantly and concurrently with foreground operations, and meant
// to be wired to an app-became-active signal or a retry ticker.
func (m *Manager) Flush() (flushed, remaining int) {
	if m.backlog.Empty() {
		return 0, 0
	}

	for _, entry := range m.backlog.Snapshot() {
		mu := m.lock(entry.Key)
		mu.Lock()
		// Re-read under the lock: the entry may have been flushed,
		// superseded, or deleted since the snapshot was taken.
		payload, ok := m.backlog.Get(entry.Key)
		if !ok {
			mu.Unlock()
			continue
		}
		status := m.writeItem(entry.Key, payload)
		if status == StatusSuccess {
			m.backlog.Remove(entry.Key)
			flushed++
		} else if status.Transient() {
			m.logger.Debug("flush deferred, store still unavailable",
				"key", entry.Key, "status", status.String())
		} else {
			// No caller is waiting; report and keep the entry for the
			// next attempt.
			m.reportFailure(AccessFlush, &AccessError{Kind: FailureSave, Status: status})
		}
		mu.Unlock()
	}

	remaining = m.backlog.Len()
	if flushed > 0 || remaining > 0 {
		m.logger.Info("backlog flush", "flushed", flushed, "remaining", remaining)
	}
	return flushed, remaining
}
