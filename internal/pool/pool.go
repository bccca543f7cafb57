// Package pool tracks auxiliary worker slots: which ones the controller
// wants running and which ones actually have a live goroutine.
package pool

import "sync"

// Slots guards per-slot state with its own mutex. A slot's intent (active)
// and its liveness (running) are tracked separately so a slot can only be
// respawned after its previous goroutine has fully exited.
type Slots struct {
	mu     sync.Mutex
	slots  []slot
	forced bool
}

type slot struct {
	active    bool
	running   bool
	threshold uint64
}

// New sizes the pool with n slots whose start thresholds grow linearly:
// slot i requires a consecutive-behind streak of base + i*step. In forced
// mode every slot is kept active regardless of the streak.
func New(n int, base, step uint64, forced bool) *Slots {
	s := &Slots{slots: make([]slot, n), forced: forced}
	for i := range s.slots {
		s.slots[i].threshold = base + uint64(i)*step
	}
	return s
}

// Len returns the slot count.
func (s *Slots) Len() int {
	return len(s.slots)
}

// Forced reports whether the pool runs in forced-parallel mode.
func (s *Slots) Forced() bool {
	return s.forced
}

// Threshold returns slot i's start threshold.
func (s *Slots) Threshold(i int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[i].threshold
}

// Active reports the controller's intent for slot i.
func (s *Slots) Active(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[i].active
}

// ActiveCount returns how many slots are currently wanted.
func (s *Slots) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.slots {
		if s.slots[i].active {
			n++
		}
	}
	return n
}

// DueToStart activates every inactive slot whose threshold the behind streak
// has reached, and claims a goroutine launch for those without a live one.
// Only claimed slots are returned; a slot whose previous goroutine is still
// winding down is reactivated in place without a second launch.
func (s *Slots) DueToStart(behind uint64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []int
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.active || behind < sl.threshold {
			continue
		}
		sl.active = true
		if !sl.running {
			sl.running = true
			claimed = append(claimed, i)
		}
	}
	return claimed
}

// DueToStop deactivates every active slot that should wind down: the target
// is first, or the streak fell below the slot's threshold. Forced mode
// suppresses auto-stop entirely. Deactivated slot indexes are returned.
func (s *Slots) DueToStop(behind uint64, targetFirst bool) []int {
	if s.forced {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stopped []int
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.active && (targetFirst || behind < sl.threshold) {
			sl.active = false
			stopped = append(stopped, i)
		}
	}
	return stopped
}

// ActivateAll switches every slot on (forced-parallel startup) and claims a
// launch for each slot without a live goroutine.
func (s *Slots) ActivateAll() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []int
	for i := range s.slots {
		sl := &s.slots[i]
		sl.active = true
		if !sl.running {
			sl.running = true
			claimed = append(claimed, i)
		}
	}
	return claimed
}

// ShouldContinue is the check a worker makes at the top of each cycle and
// during each second of its pause: still wanted, and still justified by the
// streak unless forced.
func (s *Slots) ShouldContinue(i int, behind uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[i]
	return sl.active && (s.forced || behind >= sl.threshold)
}

// Deactivate withdraws the intent for slot i (worker self-stop or controller
// stop). The goroutine notices on its next check.
func (s *Slots) Deactivate(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[i].active = false
}

// DeactivateAll withdraws every slot's intent; used at shutdown.
func (s *Slots) DeactivateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		s.slots[i].active = false
	}
}

// MarkStopped records that slot i's goroutine has fully exited, making the
// slot eligible for a future launch.
func (s *Slots) MarkStopped(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[i].running = false
}
