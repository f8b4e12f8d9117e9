package types

import (
	"sync/atomic"
	"time"
)

/*
CacheEntry is one value held by the in-memory store.

Value and the fixed expiration parameters never change after the entry is
published to a shard. Only the access-driven timestamps move, and they are
atomics so readers on the lock-free path can update them safely.
Replacing a value always publishes a new entry.
*/
type CacheEntry struct {
	Key       string
	Value     any
	CreatedAt time.Time

	// AbsoluteAt is the hard deadline. Zero means none.
	AbsoluteAt time.Time

	// Sliding is the idle window that each read renews. Zero disables it.
	Sliding time.Duration

	lastAccessedAt atomic.Int64 // unix nanos
	expireAt       atomic.Int64 // unix nanos, 0 => no TTL
}

// NewCacheEntry creates an entry created and last accessed at now.
func NewCacheEntry(key string, value any, now time.Time) *CacheEntry {
	ent := &CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
	}
	ent.lastAccessedAt.Store(now.UnixNano())
	return ent
}

// LastAccessedAt returns the time of the latest read or write.
func (e *CacheEntry) LastAccessedAt() time.Time {
	return time.Unix(0, e.lastAccessedAt.Load())
}

// Touch records an access at now.
func (e *CacheEntry) Touch(now time.Time) {
	e.lastAccessedAt.Store(now.UnixNano())
}

// ExpireAt returns the current expiry, or the zero time if the entry never expires.
func (e *CacheEntry) ExpireAt() time.Time {
	n := e.expireAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// SetExpireAt moves the expiry. The zero time clears it.
func (e *CacheEntry) SetExpireAt(t time.Time) {
	if t.IsZero() {
		e.expireAt.Store(0)
		return
	}
	e.expireAt.Store(t.UnixNano())
}
