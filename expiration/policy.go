package expiration

import (
	"errors"
	"time"
)

// ErrInvalidPolicy is returned for negative durations or a deadline that has already passed.
var ErrInvalidPolicy = errors.New("expiration: invalid policy")

/*
Policy describes how long one entry lives.

  - Absolute: time-to-live measured from the moment of insertion.
  - AbsoluteAt: a fixed deadline. Takes precedence over Absolute when set.
  - Sliding: idle window renewed on every access. Never extends the entry
    past its absolute deadline.

A zero Policy never expires.
*/
type Policy struct {
	Absolute   time.Duration
	AbsoluteAt time.Time
	Sliding    time.Duration
}

// IsZero reports whether no expiration is configured at all.
func (p Policy) IsZero() bool {
	return p.Absolute == 0 && p.AbsoluteAt.IsZero() && p.Sliding == 0
}

// Validate rejects negative durations and deadlines at or before now.
func (p Policy) Validate(now time.Time) error {
	if p.Absolute < 0 || p.Sliding < 0 {
		return ErrInvalidPolicy
	}
	if !p.AbsoluteAt.IsZero() && !p.AbsoluteAt.After(now) {
		return ErrInvalidPolicy
	}
	return nil
}

// Deadline returns the absolute deadline for an entry written at now,
// or the zero time when the policy has none.
func (p Policy) Deadline(now time.Time) time.Time {
	if !p.AbsoluteAt.IsZero() {
		return p.AbsoluteAt
	}
	if p.Absolute > 0 {
		return now.Add(p.Absolute)
	}
	return time.Time{}
}

// Merge fills every unset field of p from defaults.
// An explicit AbsoluteAt suppresses the default Absolute.
func (p Policy) Merge(defaults Policy) Policy {
	if p.Absolute == 0 && p.AbsoluteAt.IsZero() {
		p.Absolute = defaults.Absolute
		p.AbsoluteAt = defaults.AbsoluteAt
	}
	if p.Sliding == 0 {
		p.Sliding = defaults.Sliding
	}
	return p
}

/*
Window computes how long an entry may stay in a store from now on.

	ttl = min(sliding, deadline - now)

bounded is false when the entry has neither a deadline nor a sliding window.
A bounded result with ttl <= 0 means the entry is already expired.
*/
func Window(now, deadline time.Time, sliding time.Duration) (ttl time.Duration, bounded bool) {
	switch {
	case deadline.IsZero() && sliding <= 0:
		return 0, false
	case deadline.IsZero():
		return sliding, true
	}

	remaining := deadline.Sub(now)
	if sliding > 0 && sliding < remaining {
		return sliding, true
	}
	return remaining, true
}
