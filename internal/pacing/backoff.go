package pacing

import (
	"sync"
	"time"
)

// growth per raise; a comfortable lead observed on consecutive standard
// iterations stretches waits by 1.5x each time.
const backoffGrowth = 1.5

// Backoff holds the standard-tier stretch factor. It carries its own lock so
// raising or resetting the factor never contends with the shared counters.
type Backoff struct {
	mu     sync.Mutex
	factor float64
	limit  float64
}

// NewBackoff returns a factor at 1.0 whose ceiling is max divided by one
// minute, so a five-minute cap yields a maximum factor of 5.0.
func NewBackoff(max time.Duration) *Backoff {
	return &Backoff{factor: 1.0, limit: max.Seconds() / 60.0}
}

// Raise multiplies the factor by the growth constant, capped at the ceiling,
// and returns the new value.
func (b *Backoff) Raise() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.factor *= backoffGrowth
	if b.factor > b.limit {
		b.factor = b.limit
	}
	return b.factor
}

// Reset drops the factor back to 1.0, reporting whether it was elevated.
func (b *Backoff) Reset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.factor > 1.0 {
		b.factor = 1.0
		return true
	}
	return false
}

// Factor returns the current stretch factor.
func (b *Backoff) Factor() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.factor
}
