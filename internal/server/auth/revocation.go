package auth

import (
	"sync"
	"time"
)

// RevocationList remembers invalidated token ids until their original expiry.
type RevocationList interface {
	Revoke(tokenID string, until time.Time)
	IsRevoked(tokenID string) bool
}

const purgeThreshold = 1024

// MemoryRevocationList is a process-local RevocationList. Entries vanish on
// restart, which at worst reopens the window the stateless design already has.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty list. A nil now means time.Now.
func NewMemoryRevocationList(now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Revoke records tokenID until the given time. Past times are ignored.
func (l *MemoryRevocationList) Revoke(tokenID string, until time.Time) {
	now := l.now()
	if !until.After(now) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= purgeThreshold {
		l.purgeLocked(now)
	}
	l.entries[tokenID] = until
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (l *MemoryRevocationList) IsRevoked(tokenID string) bool {
	l.mu.RLock()
	until, ok := l.entries[tokenID]
	l.mu.RUnlock()

	return ok && until.After(l.now())
}

// Len returns the number of stored entries, expired ones included.
func (l *MemoryRevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Purge drops expired entries.
func (l *MemoryRevocationList) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked(l.now())
}

func (l *MemoryRevocationList) purgeLocked(now time.Time) {
	for id, until := range l.entries {
		if !until.After(now) {
			delete(l.entries, id)
		}
	}
}
