package types

import (
	"errors"
	"fmt"
)

var (
	// ErrSerialization matches any *SerializationError via errors.Is.
	ErrSerialization = errors.New("cache: serialization failed")

	// ErrStoreUnavailable matches any *StoreUnavailableError via errors.Is.
	ErrStoreUnavailable = errors.New("cache: backing store unavailable")
)

// SerializationError reports a value that could not be encoded for, or
// decoded from, a distributed store.
type SerializationError struct {
	Op  string // "encode" or "decode"
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// StoreUnavailableError reports a connectivity or timeout failure of a
// backing store. The cache never retries it.
type StoreUnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache: store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }
