// Package track holds the campaign's shared counters. One mutex guards the
// whole group so multi-field updates and reads stay consistent; the backoff
// factor and the worker pool carry their own locks elsewhere.
package track

import (
	"sync"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pacing"
)

// Counters is the mutable state every worker shares: the global attempt
// sequence, the consecutive-behind streak, per-tier totals, and the
// verification dedupe marker.
type Counters struct {
	mu sync.Mutex

	attempts uint64
	behind   uint64

	standard           uint64
	initialAccelerated uint64
	accelerated        uint64
	superAccelerated   uint64
	backoffWaits       uint64

	lastVerified uint64
}

// Totals is a consistent copy of the counters.
type Totals struct {
	Attempts           uint64
	Behind             uint64
	Standard           uint64
	InitialAccelerated uint64
	Accelerated        uint64
	SuperAccelerated   uint64
	BackoffWaits       uint64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// NextAttempt increments the global attempt sequence and returns the new
// value. The first attempt is therefore 1.
func (c *Counters) NextAttempt() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	return c.attempts
}

// Attempts returns the attempts submitted so far.
func (c *Counters) Attempts() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Behind returns the current consecutive-behind streak.
func (c *Counters) Behind() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.behind
}

// RecordFirst notes an iteration that observed the target in first place:
// the behind streak resets and the standard tier total grows.
func (c *Counters) RecordFirst() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behind = 0
	c.standard++
}

// RecordBehind notes an iteration that observed the target trailing. The
// streak grows and the tier classified from the NEW streak value gets the
// credit. Both the new streak and the tier are returned for the record.
func (c *Counters) RecordBehind() (behind uint64, tier pacing.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behind++
	tier = pacing.ForBehind(c.behind)
	switch tier {
	case pacing.TierSuperAccelerated:
		c.superAccelerated++
	case pacing.TierAccelerated:
		c.accelerated++
	default:
		c.initialAccelerated++
	}
	return c.behind, tier
}

// RecordNeutral notes a successful submission whose standings could not be
// read: the standard total grows and the streak is left alone.
func (c *Counters) RecordNeutral() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.standard++
}

// RecordBackoffWait counts a standard wait taken while the backoff factor
// was elevated.
func (c *Counters) RecordBackoffWait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backoffWaits++
}

// SeedBehind raises the behind streak to at least n, returning the resulting
// streak. Seeding never lowers an observed streak.
func (c *Counters) SeedBehind(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.behind {
		c.behind = n
	}
	return c.behind
}

// MarkVerification decides whether a verification sample is due given the
// global attempt count: once after the first attempt, then whenever the count
// has crossed a new multiple of every since the last sample, even when the
// crossing attempt belonged to another worker. Claiming the slot and
// recording the dedupe marker happen atomically.
func (c *Counters) MarkVerification(attempts, every uint64) bool {
	if every == 0 || attempts == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastVerified == 0 {
		c.lastVerified = 1
		return true
	}
	if due := attempts - attempts%every; due > c.lastVerified {
		c.lastVerified = due
		return true
	}
	return false
}

// Snapshot copies all counters under the lock.
func (c *Counters) Snapshot() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Totals{
		Attempts:           c.attempts,
		Behind:             c.behind,
		Standard:           c.standard,
		InitialAccelerated: c.initialAccelerated,
		Accelerated:        c.accelerated,
		SuperAccelerated:   c.superAccelerated,
		BackoffWaits:       c.backoffWaits,
	}
}
