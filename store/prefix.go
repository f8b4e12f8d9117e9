package store

import (
	"context"
	"io"

	"github.com/krisalay/memocache/expiration"
)

// Prefixed returns a Store that prepends prefix to every key before
// delegating to s. It lets several applications share one service.
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{Store: s, prefix: prefix}
}

type prefixed struct {
	Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte, e expiration.Policy) error {
	return p.Store.Set(ctx, p.prefix+key, value, e)
}

func (p *prefixed) Refresh(ctx context.Context, key string) error {
	return p.Store.Refresh(ctx, p.prefix+key)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.Store.Remove(ctx, p.prefix+key)
}

func (p *prefixed) Close() error {
	if c, ok := p.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
