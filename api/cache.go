package api

import (
	"context"
	"time"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/serializer"
)

/*
Cache defines the PUBLIC API of a memoizing cache facade.
Both the in-memory and the distributed facade satisfy it; the backing
store, serialization and synchronization are hidden behind it.

Keys are given as (userKey, key). The store key is userKey + key when
userKey is non-empty, key otherwise. This is plain concatenation:
("ab", "c") and ("a", "bc") address the same entry.
*/
type Cache[T any] interface {

	/*
		SetValue stores value under the resolved key, replacing any entry.

		Expiration comes from opts, falling back to the facade's configured
		defaults.
	*/
	SetValue(userKey, key string, value T, opts ...Option) error

	/*
		GetOrSetValue returns the live entry for the resolved key.

		BEHAVIOR:
		-------------------
		1. Live entry: returned, factory not called.
		2. Absent or expired: factory called, its result stored and returned.
		3. Factory error: returned as is, nothing stored.

		No lock is taken: concurrent callers on a cold key may all run the
		factory.
	*/
	GetOrSetValue(userKey, key string, factory Factory[T], opts ...Option) (T, error)

	/*
		GetOrSetValueContext is GetOrSetValue with per-key population
		serialized inside this process: concurrent callers for the same
		resolved key share one factory run.

		The caller stops waiting when ctx is done and gets ctx.Err(). The
		shared run itself is not cancelled by any single caller, so it
		either stores a whole entry or none.
	*/
	GetOrSetValueContext(ctx context.Context, userKey, key string, factory ContextFactory[T], opts ...Option) (T, error)

	/*
		Remove deletes the entry stored under key, which is used as given
		(no userKey is applied). Removing an absent key is not an error.
	*/
	Remove(key string) error
}

// Factory produces a value on a cache miss.
type Factory[T any] func() (T, error)

// ContextFactory produces a value on a cache miss, observing ctx.
type ContextFactory[T any] func(ctx context.Context) (T, error)

// Option overrides a facade default for one call.
type Option func(*CallOptions)

// CallOptions is the resolved set of per-call overrides.
type CallOptions struct {
	Expiration expiration.Policy

	// Serializer is nil unless overridden; distributed facades only.
	Serializer *serializer.Settings
}

// Apply folds opts into a CallOptions value.
func Apply(opts ...Option) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAbsoluteExpiration sets a time-to-live measured from insertion.
func WithAbsoluteExpiration(d time.Duration) Option {
	return func(o *CallOptions) {
		o.Expiration.Absolute = d
		o.Expiration.AbsoluteAt = time.Time{}
	}
}

// WithAbsoluteExpirationAt sets a fixed deadline.
func WithAbsoluteExpirationAt(t time.Time) Option {
	return func(o *CallOptions) {
		o.Expiration.AbsoluteAt = t
		o.Expiration.Absolute = 0
	}
}

// WithSlidingExpiration sets an idle window that every read renews.
func WithSlidingExpiration(d time.Duration) Option {
	return func(o *CallOptions) {
		o.Expiration.Sliding = d
	}
}

// WithSerializerSettings overrides the facade's serializer settings.
func WithSerializerSettings(s serializer.Settings) Option {
	return func(o *CallOptions) {
		o.Serializer = &s
	}
}
