package engine

import (
	"time"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pacing"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/standings"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/verify"
)

// feed buffer size; sends never block, a full buffer drops the event.
const eventBuffer = 100

// EventKind discriminates the feed's event variants.
type EventKind string

const (
	// KindStatus carries a worker state transition.
	KindStatus EventKind = "status"
	// KindOutcome carries a finished vote iteration.
	KindOutcome EventKind = "outcome"
	// KindVerification carries a fresh effectiveness sample.
	KindVerification EventKind = "verification"
)

// WorkerState is the coarse state a worker reports between transitions.
type WorkerState string

const (
	// StateIdle means the worker is waiting out its pause.
	StateIdle WorkerState = "idle"
	// StateProcessing means the worker is mid-iteration.
	StateProcessing WorkerState = "processing"
	// StateMessage carries free text, e.g. a self-stop notice.
	StateMessage WorkerState = "message"
)

// StatusEvent is one worker state transition.
type StatusEvent struct {
	Worker  string
	State   WorkerState
	Attempt uint64
	Message string
	Time    time.Time
}

// Outcome is everything one vote iteration learned. Observed gates the
// standings-derived fields: when false the attempt could not read standings
// and TargetFirst, TargetRank, TargetPct, LeadMargin and Standings carry no
// information.
type Outcome struct {
	Sequence    uint64
	Worker      string
	Time        time.Time
	Success     bool
	Observed    bool
	TargetFirst bool
	TargetRank  int // 1-based, 0 when the target was not listed
	TargetPct   float64
	Behind      uint64
	Tier        pacing.Tier
	LeadMargin  float64
	LeadDefined bool
	BackoffOn   bool
	Duration    time.Duration
	Standings   standings.Snapshot
}

// Event is one feed entry; the field matching Kind is populated.
type Event struct {
	Kind         EventKind
	Status       StatusEvent
	Outcome      Outcome
	Verification verify.Record
}

// Events returns the feed. It is closed when Run finishes; consumers should
// read until closed.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// publish delivers an event without ever blocking an iteration: a consumer
// that cannot keep up loses events rather than slowing the campaign. After
// the feed closes, late events from workers that outlived the bounded join
// (a submission may block past shutdown) are dropped instead of sent.
func (e *Engine) publish(ev Event) {
	e.feedMu.RLock()
	defer e.feedMu.RUnlock()
	if e.feedClosed {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) publishStatus(worker string, state WorkerState, attempt uint64, msg string) {
	e.publish(Event{Kind: KindStatus, Status: StatusEvent{
		Worker:  worker,
		State:   state,
		Attempt: attempt,
		Message: msg,
		Time:    time.Now(),
	}})
}
