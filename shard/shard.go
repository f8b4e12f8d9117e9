package shard

import "sync"

// Shard is one independently locked slice of the memory store. Writers on
// different shards never contend.
type Shard struct {
	// Store is read without locks.
	Store ShardStore

	// WriteMu serializes Put, Delete and the expiry sweep.
	WriteMu sync.Mutex
}

func NewShard() *Shard {
	return &Shard{
		Store: NewCOWStore(),
	}
}
