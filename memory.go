package cache

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/memocache/api"
	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/observer"
)

/*
Memory is a memoizing facade over a MemoryStore for values of type T.

Values are stored as is, without serialization. A key holding a value of
another type (written through a facade of a different T) reads as a miss.

Synchronization:
  - GetOrSetValue takes no lock. Concurrent callers on a cold key may each
    run the factory; the last write wins.
  - GetOrSetValueContext shares one factory run per resolved key among the
    callers of this facade. It is advisory: another facade on the same
    store, or a GetOrSetValue caller, is not excluded.
*/
type Memory[T any] struct {
	store    *MemoryStore
	defaults expiration.Policy
	opts     Options

	// sf collapses concurrent GetOrSetValueContext populations per resolved key.
	sf singleflight.Group
}

var _ api.Cache[int] = (*Memory[int])(nil)

// NewMemory creates a facade over store. Expiration defaults to 30s absolute.
func NewMemory[T any](store *MemoryStore, opts Options) *Memory[T] {
	return &Memory[T]{
		store:    store,
		defaults: opts.policy(DefaultMemoryExpiration, 0),
		opts:     opts.withDefaults(),
	}
}

// SetValue stores value under the resolved key, replacing any entry.
func (m *Memory[T]) SetValue(userKey, key string, value T, opts ...api.Option) error {
	k := ResolveKey(userKey, key)
	p := api.Apply(opts...).Expiration.Merge(m.defaults)

	if err := m.store.Set(k, value, p); err != nil {
		return err
	}
	m.opts.Observer.Publish(observer.Event{Kind: observer.Set, Key: k})
	return nil
}

// TryGetValue returns the live value for the resolved key. It never runs a factory.
func (m *Memory[T]) TryGetValue(userKey, key string) (T, bool) {
	return m.lookup(ResolveKey(userKey, key))
}

// GetOrSetValue returns the live value or stores and returns factory's result.
// See the type documentation for its (absent) locking.
func (m *Memory[T]) GetOrSetValue(userKey, key string, factory api.Factory[T], opts ...api.Option) (T, error) {
	k := ResolveKey(userKey, key)
	if v, ok := m.hit(k); ok {
		return v, nil
	}

	p := api.Apply(opts...).Expiration.Merge(m.defaults)
	return m.populate(k, factory, p)
}

// GetOrSetValueContext is GetOrSetValue with per-key single-flight population.
// It returns ctx.Err() if ctx is done before the value is available.
func (m *Memory[T]) GetOrSetValueContext(ctx context.Context, userKey, key string, factory api.ContextFactory[T], opts ...api.Option) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	k := ResolveKey(userKey, key)
	if v, ok := m.hit(k); ok {
		return v, nil
	}

	p := api.Apply(opts...).Expiration.Merge(m.defaults)
	detached := context.WithoutCancel(ctx)

	ch := m.sf.DoChan(k, func() (any, error) {
		return recovered(m.opts.Logger, k, func() (any, error) {
			// an earlier flight may have filled the key after our miss
			if v, ok := m.lookup(k); ok {
				return v, nil
			}
			return m.populate(k, func() (T, error) { return factory(detached) }, p)
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		return result[T](r)
	}
}

// Remove deletes key as given; no userKey is applied. It always returns nil.
func (m *Memory[T]) Remove(key string) error {
	m.store.Remove(key)
	m.opts.Observer.Publish(observer.Event{Kind: observer.Removed, Key: key})
	return nil
}

func (m *Memory[T]) lookup(k string) (T, bool) {
	var zero T

	v, ok := m.store.Get(k)
	if !ok {
		return zero, false
	}
	if v == nil {
		return zero, true
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// hit probes k and records the outcome.
func (m *Memory[T]) hit(k string) (T, bool) {
	v, ok := m.lookup(k)
	if ok {
		m.opts.Metrics.Hit()
		m.opts.Observer.Publish(observer.Event{Kind: observer.Hit, Key: k})
	} else {
		m.opts.Metrics.Miss()
		m.opts.Observer.Publish(observer.Event{Kind: observer.Miss, Key: k})
	}
	return v, ok
}

// populate runs factory and stores its result. Factory errors are
// returned unchanged and leave the key untouched.
func (m *Memory[T]) populate(k string, factory api.Factory[T], p expiration.Policy) (T, error) {
	var zero T

	if err := p.Validate(m.store.Now()); err != nil {
		return zero, err
	}

	m.opts.Observer.Publish(observer.Event{Kind: observer.BeforePopulate, Key: k})

	v, err := factory()
	if err != nil {
		m.opts.Metrics.PopulateError()
		m.opts.Observer.Publish(observer.Event{Kind: observer.PopulateFailed, Key: k, Err: err})
		m.opts.Logger.Debug("factory failed", zap.String("key", k), zap.Error(err))
		return zero, err
	}

	if err := m.store.Set(k, v, p); err != nil {
		m.opts.Metrics.PopulateError()
		m.opts.Observer.Publish(observer.Event{Kind: observer.PopulateFailed, Key: k, Err: err})
		return zero, err
	}

	m.opts.Metrics.Populate()
	m.opts.Observer.Publish(observer.Event{Kind: observer.AfterPopulate, Key: k})
	return v, nil
}

// factoryPanic carries a panic out of a single-flight run so it can be
// raised again on each waiting caller's goroutine.
type factoryPanic struct {
	value any
}

func (p *factoryPanic) Error() string {
	return fmt.Sprintf("cache: factory panicked: %v", p.value)
}

// recovered runs fn and turns a panic into a *factoryPanic. singleflight
// re-panics DoChan panics on a goroutine nobody can recover.
func recovered(logger *zap.Logger, key string, fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("factory panicked",
				zap.String("key", key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = &factoryPanic{value: r}
		}
	}()
	return fn()
}

// result unpacks a single-flight result, re-raising a factory panic here.
func result[T any](r singleflight.Result) (T, error) {
	var zero T

	var fp *factoryPanic
	if errors.As(r.Err, &fp) {
		panic(fp.value)
	}
	if r.Err != nil {
		return zero, r.Err
	}
	return as[T](r.Val), nil
}

// as converts a single-flight result back to T. A nil interface is T's zero value.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}
