package ledger

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	tokenID   string
	expiresAt time.Time
}

// Memory is an in-process Ledger. Entries do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry

	// Now is the expiry clock; tests pin it.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[int64]memoryEntry),
		Now:     time.Now,
	}
}

// lookup returns the live entry for userID, dropping an expired one.
func (m *Memory) lookup(userID int64) (memoryEntry, bool) {
	e, ok := m.entries[userID]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.Now().Before(e.expiresAt) {
		delete(m.entries, userID)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) Insert(_ context.Context, userID int64, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry{tokenID: tokenID, expiresAt: m.Now().Add(ttl)}
	return nil
}

func (m *Memory) Validate(_ context.Context, userID int64, tokenID string) (Result, error) {
	if malformed(tokenID) {
		return Invalid, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(userID)
	if !ok || e.tokenID != tokenID {
		return Reused, nil
	}
	return Valid, nil
}

func (m *Memory) Rotate(_ context.Context, userID int64, oldID, newID string, ttl time.Duration) (Result, error) {
	if malformed(oldID) {
		return Invalid, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(userID)
	if !ok || e.tokenID != oldID {
		delete(m.entries, userID)
		return Reused, nil
	}
	m.entries[userID] = memoryEntry{tokenID: newID, expiresAt: m.Now().Add(ttl)}
	return Valid, nil
}

func (m *Memory) Invalidate(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *Memory) Sweep(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	var n int64
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}
