// Package pacing decides how long the campaign waits between vote attempts.
//
// Waits come in four tiers keyed to how many consecutive iterations the
// target has been observed trailing: the longer the losing streak, the
// shorter the wait. The standard tier additionally stretches by an
// exponential backoff factor while the target holds a comfortable lead.
package pacing

import (
	"math"
	"math/rand"
	"time"
)

// Tier identifies one of the four wait bands. The values double as the tier
// names recorded in the audit journal.
type Tier string

const (
	// TierStandard applies while the target leads (or standings are unknown).
	TierStandard Tier = "standard"
	// TierInitialAccelerated applies for behind counts 1 through 4.
	TierInitialAccelerated Tier = "initial_accelerated"
	// TierAccelerated applies for behind counts 5 through 9.
	TierAccelerated Tier = "accelerated"
	// TierSuperAccelerated applies for behind counts of 10 and above.
	TierSuperAccelerated Tier = "super_accelerated"
)

// String returns the journal name of the tier.
func (t Tier) String() string { return string(t) }

// Wait bounds per tier, in whole seconds, both ends inclusive.
const (
	standardMin, standardMax       = 53, 67
	initialMin, initialMax         = 14, 37
	acceleratedMin, acceleratedMax = 7, 16
	superMin, superMax             = 3, 10

	workerPauseMin, workerPauseMax = 3, 10
)

// ForBehind classifies a consecutive-behind count into its tier. It serves
// both the post-classification tier (called with the freshly incremented
// count) and the speculative tier recorded for failed attempts (called with
// the current, unchanged count).
func ForBehind(behind uint64) Tier {
	switch {
	case behind >= 10:
		return TierSuperAccelerated
	case behind >= 5:
		return TierAccelerated
	case behind >= 1:
		return TierInitialAccelerated
	default:
		return TierStandard
	}
}

func (t Tier) bounds() (lo, hi int) {
	switch t {
	case TierSuperAccelerated:
		return superMin, superMax
	case TierAccelerated:
		return acceleratedMin, acceleratedMax
	case TierInitialAccelerated:
		return initialMin, initialMax
	default:
		return standardMin, standardMax
	}
}

// Draw picks a uniform wait from the tier's inclusive range. The returned
// standard-tier value is the raw draw; apply StandardWait to stretch it by
// the backoff factor.
func Draw(t Tier) time.Duration {
	lo, hi := t.bounds()
	return randSeconds(lo, hi)
}

// WorkerPause picks the short uniform wait auxiliary workers take between
// their own iterations, independent of tier.
func WorkerPause() time.Duration {
	return randSeconds(workerPauseMin, workerPauseMax)
}

// StandardWait stretches a standard-tier draw by the backoff factor,
// rounding to whole seconds and capping at max.
func StandardWait(draw time.Duration, factor float64, max time.Duration) time.Duration {
	secs := math.Round(draw.Seconds() * factor)
	if capSecs := max.Seconds(); secs > capSecs {
		secs = capSecs
	}
	return time.Duration(secs * float64(time.Second))
}

// randSeconds draws uniformly from [lo, hi] whole seconds. The top-level
// math/rand functions are safe for concurrent use.
func randSeconds(lo, hi int) time.Duration {
	return time.Duration(lo+rand.Intn(hi-lo+1)) * time.Second
}
