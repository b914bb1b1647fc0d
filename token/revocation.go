package token

import (
	"sync"
	"time"
)

// Denylist records access-token ids that were revoked before their expiry.
type Denylist interface {
	Revoke(jti string, until time.Time)
	Contains(jti string) bool
	Prune() int
}

// memoryDenylist keeps each jti only until the token would have expired anyway.
type memoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist(now func() time.Time) Denylist {
	if now == nil {
		now = time.Now
	}
	return &memoryDenylist{entries: map[string]time.Time{}, now: now}
}

func (d *memoryDenylist) Revoke(jti string, until time.Time) {
	if jti == "" {
		return
	}
	d.mu.Lock()
	if prev, ok := d.entries[jti]; !ok || until.After(prev) {
		d.entries[jti] = until
	}
	d.mu.Unlock()
}

func (d *memoryDenylist) Contains(jti string) bool {
	d.mu.RLock()
	_, ok := d.entries[jti]
	d.mu.RUnlock()
	return ok
}

// Prune drops entries whose token has expired and returns how many were removed.
func (d *memoryDenylist) Prune() int {
	cutoff := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for jti, until := range d.entries {
		if cutoff.After(until) {
			delete(d.entries, jti)
			removed++
		}
	}
	return removed
}
