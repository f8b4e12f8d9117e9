package cache

import (
	"context"
	"errors"
	"io"

	"github.com/samber/mo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/memocache/api"
	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/observer"
	"github.com/krisalay/memocache/serializer"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/types"
)

/*
Distributed is a memoizing facade over a network store for values of type T.

Values are encoded with the configured codec (JSON by default) before they
are written and decoded after they are read. Each method has a blocking
form and a Context form; the blocking form uses context.Background().

Synchronization:
  - No lock spans processes. Two processes missing the same key both run
    their factory and both write; the last write wins.
  - GetOrSetValueContext shares one factory run per resolved key inside
    this process. GetOrSetValue does not.
*/
type Distributed[T any] struct {
	store    store.Store
	defaults expiration.Policy
	opts     Options

	sf singleflight.Group
}

var _ api.Cache[int] = (*Distributed[int])(nil)

// NewDistributed creates a facade over s. Expiration defaults to 1m
// absolute and 1m sliding.
func NewDistributed[T any](s store.Store, opts Options) *Distributed[T] {
	return &Distributed[T]{
		store:    s,
		defaults: opts.policy(DefaultDistributedAbsoluteExpiration, DefaultDistributedSlidingExpiration),
		opts:     opts.withDefaults(),
	}
}

func (d *Distributed[T]) SetValue(userKey, key string, value T, opts ...api.Option) error {
	return d.SetValueContext(context.Background(), userKey, key, value, opts...)
}

// SetValueContext encodes value and stores it under the resolved key.
func (d *Distributed[T]) SetValueContext(ctx context.Context, userKey, key string, value T, opts ...api.Option) error {
	k := ResolveKey(userKey, key)
	co := api.Apply(opts...)

	if err := d.write(ctx, k, value, co); err != nil {
		return err
	}
	d.opts.Observer.Publish(observer.Event{Kind: observer.Set, Key: k})
	return nil
}

func (d *Distributed[T]) TryGetValue(userKey, key string, opts ...api.Option) (T, bool, error) {
	return d.TryGetValueContext(context.Background(), userKey, key, opts...)
}

/*
TryGetValueContext reads the resolved key without running a factory.
A miss is (zero, false, nil). Store and decode failures are returned.
Only serializer settings are taken from opts.
*/
func (d *Distributed[T]) TryGetValueContext(ctx context.Context, userKey, key string, opts ...api.Option) (T, bool, error) {
	return d.read(ctx, ResolveKey(userKey, key), api.Apply(opts...))
}

// Lookup is TryGetValueContext returning an Option.
func (d *Distributed[T]) Lookup(ctx context.Context, userKey, key string, opts ...api.Option) (mo.Option[T], error) {
	v, ok, err := d.TryGetValueContext(ctx, userKey, key, opts...)
	if err != nil || !ok {
		return mo.None[T](), err
	}
	return mo.Some(v), nil
}

func (d *Distributed[T]) GetOrSetValue(userKey, key string, factory api.Factory[T], opts ...api.Option) (T, error) {
	k := ResolveKey(userKey, key)
	co := api.Apply(opts...)
	ctx := context.Background()

	v, ok, err := d.probe(ctx, k, co)
	if err != nil || ok {
		return v, err
	}
	return d.populate(ctx, k, factory, co)
}

// GetOrSetValueContext is GetOrSetValue with per-key single-flight
// population inside this process. It returns ctx.Err() if ctx is done
// before the value is available; a population already under way still
// completes and is stored.
func (d *Distributed[T]) GetOrSetValueContext(ctx context.Context, userKey, key string, factory api.ContextFactory[T], opts ...api.Option) (T, error) {
	var zero T
	k := ResolveKey(userKey, key)
	co := api.Apply(opts...)

	v, ok, err := d.probe(ctx, k, co)
	if err != nil || ok {
		return v, err
	}

	detached := context.WithoutCancel(ctx)
	ch := d.sf.DoChan(k, func() (any, error) {
		return recovered(d.opts.Logger, k, func() (any, error) {
			// an earlier flight may have filled the key after our miss
			if v, ok, err := d.read(detached, k, co); err == nil && ok {
				return v, nil
			}
			return d.populate(detached, k, func() (T, error) { return factory(detached) }, co)
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		return result[T](r)
	}
}

func (d *Distributed[T]) Refresh(key string) error {
	return d.RefreshContext(context.Background(), key)
}

// RefreshContext renews the sliding window of key, used as given. An
// absent key is a no-op.
func (d *Distributed[T]) RefreshContext(ctx context.Context, key string) error {
	if err := d.store.Refresh(ctx, key); err != nil {
		return err
	}
	d.opts.Metrics.Refresh()
	d.opts.Observer.Publish(observer.Event{Kind: observer.Refreshed, Key: key})
	return nil
}

func (d *Distributed[T]) Remove(key string) error {
	return d.RemoveContext(context.Background(), key)
}

// RemoveContext deletes key, used as given. An absent key is not an error.
func (d *Distributed[T]) RemoveContext(ctx context.Context, key string) error {
	if err := d.store.Remove(ctx, key); err != nil {
		return err
	}
	d.opts.Observer.Publish(observer.Event{Kind: observer.Removed, Key: key})
	return nil
}

// Close closes the underlying store if it holds resources.
func (d *Distributed[T]) Close() error {
	if c, ok := d.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// probe reads k and records the outcome as a hit or miss.
func (d *Distributed[T]) probe(ctx context.Context, k string, co api.CallOptions) (T, bool, error) {
	v, ok, err := d.read(ctx, k, co)
	switch {
	case err != nil:
	case ok:
		d.opts.Metrics.Hit()
		d.opts.Observer.Publish(observer.Event{Kind: observer.Hit, Key: k})
	default:
		d.opts.Metrics.Miss()
		d.opts.Observer.Publish(observer.Event{Kind: observer.Miss, Key: k})
	}
	return v, ok, err
}

func (d *Distributed[T]) populate(ctx context.Context, k string, factory api.Factory[T], co api.CallOptions) (T, error) {
	var zero T

	if err := d.policy(co).Validate(d.opts.Clock.Now()); err != nil {
		return zero, err
	}

	d.opts.Observer.Publish(observer.Event{Kind: observer.BeforePopulate, Key: k})

	v, err := factory()
	if err != nil {
		d.fail(k, err)
		d.opts.Logger.Debug("factory failed", zap.String("key", k), zap.Error(err))
		return zero, err
	}

	if err := d.write(ctx, k, v, co); err != nil {
		d.fail(k, err)
		return zero, err
	}

	d.opts.Metrics.Populate()
	d.opts.Observer.Publish(observer.Event{Kind: observer.AfterPopulate, Key: k})
	return v, nil
}

func (d *Distributed[T]) fail(k string, err error) {
	d.opts.Metrics.PopulateError()
	d.opts.Observer.Publish(observer.Event{Kind: observer.PopulateFailed, Key: k, Err: err})
}

func (d *Distributed[T]) read(ctx context.Context, k string, co api.CallOptions) (T, bool, error) {
	var zero T

	data, err := d.store.Get(ctx, k)
	if errors.Is(err, store.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var v T
	if err := d.opts.Serializer.Unmarshal(data, &v, d.settings(co)); err != nil {
		return zero, false, &types.SerializationError{Op: "decode", Key: k, Err: err}
	}
	return v, true, nil
}

func (d *Distributed[T]) write(ctx context.Context, k string, v T, co api.CallOptions) error {
	data, err := d.opts.Serializer.Marshal(v, d.settings(co))
	if err != nil {
		return &types.SerializationError{Op: "encode", Key: k, Err: err}
	}
	return d.store.Set(ctx, k, data, d.policy(co))
}

func (d *Distributed[T]) policy(co api.CallOptions) expiration.Policy {
	return co.Expiration.Merge(d.defaults)
}

// settings picks per-call settings, then the facade's, then the process default.
func (d *Distributed[T]) settings(co api.CallOptions) serializer.Settings {
	switch {
	case co.Serializer != nil:
		return *co.Serializer
	case d.opts.SerializerSettings != nil:
		return *d.opts.SerializerSettings
	}
	return serializer.Default()
}
