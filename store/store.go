// Package store defines the contract between a distributed cache facade
// and the network key/value service that holds its entries.
package store

import (
	"context"
	"errors"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/types"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("store: not found")

/*
Store is a byte-valued key/value service with absolute and sliding
expiration.

  - Get returns ErrNotFound on a miss and renews the sliding window on a hit.
  - Set writes value and expiry as one unit; a failed Set leaves no entry
    and a successful one leaves a whole entry.
  - Refresh renews the sliding window without reading the value. An absent
    key is a no-op.
  - Remove deletes the key. An absent key is a no-op.

Transport failures are returned as *types.StoreUnavailableError.
*/
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, p expiration.Policy) error
	Refresh(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
}

// Unavailable wraps a transport error in a *types.StoreUnavailableError.
func Unavailable(op, key string, err error) error {
	return &types.StoreUnavailableError{Op: op, Key: key, Err: err}
}
