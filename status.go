package votetool

import "time"

// WorkerState is the coarse state a worker reports between transitions.
//
// A string type keeps the states human-readable in logs while the constants
// keep callers type-safe, mirroring how the journal names tiers.
type WorkerState string

const (
	// WorkerIdle means the worker is waiting out its pause.
	WorkerIdle WorkerState = "idle"

	// WorkerProcessing means the worker is mid-submission.
	WorkerProcessing WorkerState = "processing"

	// WorkerMessage carries free text, such as a self-stop notice.
	WorkerMessage WorkerState = "message"
)

// String returns the string representation of the state.
func (s WorkerState) String() string {
	return string(s)
}

// StatusUpdate is one worker state transition, delivered to callbacks
// registered with [WithStatusCallback].
type StatusUpdate struct {
	// Worker is "primary" or "worker-N".
	Worker string

	// State is the worker's new state.
	State WorkerState

	// Attempt is the attempt the transition belongs to; zero when the
	// transition is not tied to a particular attempt.
	Attempt uint64

	// Message carries free text for [WorkerMessage] transitions.
	Message string

	// Time is when the transition happened.
	Time time.Time
}

// Outcome is everything one finished vote attempt learned, delivered to
// callbacks registered with [WithOutcomeCallback].
//
// Pointer fields are nil when the attempt could not observe standings: a
// failed submission, or a result page that would not parse.
type Outcome struct {
	// Attempt is the global attempt sequence number.
	Attempt uint64

	// Worker performed the attempt.
	Worker string

	// Time is when the attempt finished.
	Time time.Time

	// Success reports whether the submission obtained a result page.
	Success bool

	// TargetFirst reports whether the target held first place. nil when
	// standings were unavailable.
	TargetFirst *bool

	// TargetRank is the target's 1-based position. nil when the target was
	// not listed or standings were unavailable.
	TargetRank *int

	// TargetPercentage is the target's published vote share.
	TargetPercentage *float64

	// LeadMargin is the target's lead over the runner-up in percentage
	// points. nil unless the target was first with a runner-up present.
	LeadMargin *float64

	// ConsecutiveBehind is the behind streak after this attempt's
	// classification.
	ConsecutiveBehind uint64

	// Tier names the wait tier this attempt was credited to: "standard",
	// "initial_accelerated", "accelerated", or "super_accelerated".
	Tier string

	// BackoffActive reports whether the backoff factor exceeded 1.0 when
	// the attempt started.
	BackoffActive bool

	// Duration is the wall-clock time from submission through
	// classification.
	Duration time.Duration

	// Standings is the parsed results page, empty when unavailable.
	Standings []Entry
}

// VerificationReport is one effectiveness sample, delivered to callbacks
// registered with [WithVerificationCallback].
//
// The increase fields compare against the previous sample of the same
// session and are nil on a session's first sample.
type VerificationReport struct {
	// Attempt is our own submission count at sampling time.
	Attempt uint64

	// TotalVotes is the poll's self-reported overall total.
	TotalVotes int

	// TargetPercentage is the target's published share.
	TargetPercentage float64

	// TargetVotes estimates the target's absolute votes:
	// floor(TotalVotes * TargetPercentage / 100).
	TargetVotes int

	// ExpectedIncrease is our attempts since the previous sample.
	ExpectedIncrease *uint64

	// ActualIncrease is the change in the target's estimated votes since
	// the previous sample.
	ActualIncrease *int

	// Effectiveness is ActualIncrease / ExpectedIncrease * 100; nil when
	// ExpectedIncrease is zero or on the first sample.
	Effectiveness *float64

	// Time is when the sample was taken.
	Time time.Time
}
