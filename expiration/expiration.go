// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/memocache/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
expiration logic into the cache, we define a strategy so expiration behavior can be swapped easily.
*/
type Strategy interface {

	// IsExpired checks if the entry is expired
	IsExpired(*types.CacheEntry, time.Time) bool

	// OnAccess is called whenever a cache entry is read successfully.
	OnAccess(*types.CacheEntry, time.Time)

	// OnWrite is called whenever a cache entry is written or updated.
	OnWrite(*types.CacheEntry, time.Time)
}

/*
PerEntry expires each entry by the parameters it was written with.

Entries with only an absolute deadline expire exactly at that deadline.
Entries with a sliding window get their expiry pushed forward on every read,
capped by the absolute deadline.
*/
type PerEntry struct{}

// IsExpired reports whether now is at or past the entry's expiry.
func (PerEntry) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	exp := ent.ExpireAt()
	return !exp.IsZero() && !now.Before(exp)
}

// OnAccess records the read and renews the sliding window, if any.
func (PerEntry) OnAccess(ent *types.CacheEntry, now time.Time) {
	ent.Touch(now)
	if ent.Sliding <= 0 {
		return
	}
	ttl, _ := Window(now, ent.AbsoluteAt, ent.Sliding)
	ent.SetExpireAt(now.Add(ttl))
}

// OnWrite sets the initial expiry from the entry's parameters.
func (PerEntry) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.Touch(now)
	ttl, bounded := Window(now, ent.AbsoluteAt, ent.Sliding)
	if !bounded {
		ent.SetExpireAt(time.Time{})
		return
	}
	ent.SetExpireAt(now.Add(ttl))
}
