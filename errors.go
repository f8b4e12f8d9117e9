package cache

import "github.com/krisalay/memocache/types"

type (
	// SerializationError reports a value that could not be encoded or decoded.
	SerializationError = types.SerializationError

	// StoreUnavailableError reports a backing store connectivity or timeout failure.
	StoreUnavailableError = types.StoreUnavailableError
)

var (
	ErrSerialization    = types.ErrSerialization
	ErrStoreUnavailable = types.ErrStoreUnavailable
)
