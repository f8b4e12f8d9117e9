package types

import "sync/atomic"

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The cache will call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a live entry is returned without running a factory.
	Hit()

	// Miss is called when the key is absent or expired.
	Miss()

	// Expire is called when an expired entry is found and dropped.
	Expire()

	// Populate is called after a factory result has been stored.
	Populate()

	// PopulateError is called when a factory, its encoding or its store write fails.
	PopulateError()

	// Refresh is called when a sliding window is explicitly renewed.
	Refresh()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Callers that don't care about metrics still get a working cache,
without nil checks scattered through the read and write paths.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()           {}
func (NoopMetrics) Miss()          {}
func (NoopMetrics) Expire()        {}
func (NoopMetrics) Populate()      {}
func (NoopMetrics) PopulateError() {}
func (NoopMetrics) Refresh()       {}

var _ Metrics = (*Counters)(nil)

// Counters is a Metrics implementation backed by atomic counters.
type Counters struct {
	hits           atomic.Int64
	misses         atomic.Int64
	expired        atomic.Int64
	populated      atomic.Int64
	populateErrors atomic.Int64
	refreshed      atomic.Int64
}

func (c *Counters) Hit()           { c.hits.Add(1) }
func (c *Counters) Miss()          { c.misses.Add(1) }
func (c *Counters) Expire()        { c.expired.Add(1) }
func (c *Counters) Populate()      { c.populated.Add(1) }
func (c *Counters) PopulateError() { c.populateErrors.Add(1) }
func (c *Counters) Refresh()       { c.refreshed.Add(1) }

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Hits           int64
	Misses         int64
	Expired        int64
	Populated      int64
	PopulateErrors int64
	Refreshed      int64
}

// Snapshot reads every counter. The copy is not atomic across fields.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Expired:        c.expired.Load(),
		Populated:      c.populated.Load(),
		PopulateErrors: c.populateErrors.Load(),
		Refreshed:      c.refreshed.Load(),
	}
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
