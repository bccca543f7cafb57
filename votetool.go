package votetool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/engine"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/journal"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/standings"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/verify"
)

const (
	defaultMaxWorkers       = 4
	defaultStartWorkers     = 1
	defaultLeadThreshold    = 15.0
	defaultMaxBackoff       = 5 * time.Minute
	defaultJournalPath      = "voting_activity.json"
	defaultVerificationPath = "vote_verification.json"
	defaultThresholdBase    = 20
	defaultThresholdStep    = 10
)

// Campaign is the main orchestrator for adaptive vote submission.
//
// A Campaign repeatedly submits votes for one target entrant, watches the
// poll's published standings after each submission, and adapts its pacing
// and parallelism to the target's position: short waits and extra workers
// while the target trails, long backed-off waits while it leads comfortably.
// Every attempt is journaled, and submission effectiveness is periodically
// cross-checked against the poll's own totals.
//
// Create one with [New] and functional options, then run it with
// [Campaign.Start]:
//
//	c, err := votetool.New(
//	    votetool.WithTarget("Cutler Whitaker"),
//	    votetool.WithSubmitter(sub),
//	)
//	if err != nil {
//	    slog.Error("failed to create campaign", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	c.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel it to trigger
// graceful shutdown.
type Campaign struct {
	target           string
	submitter        Submitter
	parser           ResultsParser
	maxWorkers       int
	startWorkers     int
	leadThreshold    float64
	maxBackoff       time.Duration
	forceParallel    bool
	saveStandings    bool
	journalPath      string
	verificationPath string
	thresholdBase    uint64
	thresholdStep    uint64
	logger           *slog.Logger

	statusCallbacks       []func(StatusUpdate)
	outcomeCallbacks      []func(Outcome)
	verificationCallbacks []func(VerificationReport)
}

// New creates a [Campaign] from the given options.
//
// [WithTarget] and [WithSubmitter] are required. Everything else defaults:
// 4 max workers, 1 start worker, lead threshold 15.0, max backoff 5 minutes,
// thresholds 20+10i, journal "voting_activity.json", verification
// "vote_verification.json", [StandingsBlockParser].
//
// Returns an error if a required option is missing or any option is invalid.
func New(opts ...Option) (*Campaign, error) {
	cfg := &campaignConfig{
		parser:           StandingsBlockParser(),
		maxWorkers:       defaultMaxWorkers,
		startWorkers:     defaultStartWorkers,
		leadThreshold:    defaultLeadThreshold,
		maxBackoff:       defaultMaxBackoff,
		journalPath:      defaultJournalPath,
		verificationPath: defaultVerificationPath,
		thresholdBase:    defaultThresholdBase,
		thresholdStep:    defaultThresholdStep,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.target == "" {
		return nil, errors.New("a target is required")
	}
	if cfg.submitter == nil {
		return nil, errors.New("a submitter is required")
	}
	if cfg.startWorkers > cfg.maxWorkers {
		return nil, fmt.Errorf("start workers (%d) cannot exceed max workers (%d)",
			cfg.startWorkers, cfg.maxWorkers)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Campaign{
		target:           cfg.target,
		submitter:        cfg.submitter,
		parser:           cfg.parser,
		maxWorkers:       cfg.maxWorkers,
		startWorkers:     cfg.startWorkers,
		leadThreshold:    cfg.leadThreshold,
		maxBackoff:       cfg.maxBackoff,
		forceParallel:    cfg.forceParallel,
		saveStandings:    cfg.saveStandings,
		journalPath:      cfg.journalPath,
		verificationPath: cfg.verificationPath,
		thresholdBase:    cfg.thresholdBase,
		thresholdStep:    cfg.thresholdStep,
		logger:           logger,

		statusCallbacks:       cfg.statusCallbacks,
		outcomeCallbacks:      cfg.outcomeCallbacks,
		verificationCallbacks: cfg.verificationCallbacks,
	}, nil
}

// Start runs the campaign until the context is cancelled.
//
// Start is a blocking call. While it runs, the primary worker submits votes
// on its adaptive schedule, auxiliary workers come and go with the target's
// position, and every feed event is dispatched to the registered callbacks.
//
// Returns nil on graceful shutdown (context cancelled) and an error only if
// the primary loop itself failed irrecoverably.
func (c *Campaign) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	sessionID := newSessionID()
	c.logger.Info("campaign session opened",
		"session_id", sessionID,
		"target", c.target,
		"journal", c.journalPath,
	)

	eng := engine.New(engine.Config{
		Target:        standings.NewTarget(c.target),
		Submitter:     c.submitter,
		Parser:        c.toEngineParser(),
		SessionID:     sessionID,
		LeadThreshold: c.leadThreshold,
		MaxBackoff:    c.maxBackoff,
		MaxWorkers:    c.maxWorkers,
		StartWorkers:  c.startWorkers,
		ForceParallel: c.forceParallel,
		SaveStandings: c.saveStandings,
		ThresholdBase: c.thresholdBase,
		ThresholdStep: c.thresholdStep,
		Journal:       journal.NewWriter(c.journalPath, c.target, c.logger),
		Verification:  verify.NewLog(c.verificationPath, sessionID, c.logger),
		Logger:        c.logger,
	})

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(runCtx)
	})
	g.Go(func() error {
		// the feed closes when Run finishes, ending this consumer
		for ev := range eng.Events() {
			c.dispatch(ev)
		}
		return nil
	})

	err := g.Wait()
	c.logger.Info("campaign stopped")
	return err
}

// Target returns the configured target name.
func (c *Campaign) Target() string {
	return c.target
}

// MaxWorkers returns the configured worker budget.
func (c *Campaign) MaxWorkers() int {
	return c.maxWorkers
}

// JournalPath returns where the audit journal is written.
func (c *Campaign) JournalPath() string {
	return c.journalPath
}

// dispatch fans one feed event out to its registered callbacks.
func (c *Campaign) dispatch(ev engine.Event) {
	switch ev.Kind {
	case engine.KindStatus:
		if len(c.statusCallbacks) == 0 {
			return
		}
		update := statusEventToUpdate(ev.Status)
		for _, cb := range c.statusCallbacks {
			invokeStatusSafe(cb, update, c.logger)
		}
	case engine.KindOutcome:
		if len(c.outcomeCallbacks) == 0 {
			return
		}
		outcome := engineOutcomeToPublic(ev.Outcome)
		for _, cb := range c.outcomeCallbacks {
			invokeOutcomeSafe(cb, outcome, c.logger)
		}
	case engine.KindVerification:
		if len(c.verificationCallbacks) == 0 {
			return
		}
		report := verifyRecordToReport(ev.Verification)
		for _, cb := range c.verificationCallbacks {
			invokeVerificationSafe(cb, report, c.logger)
		}
	}
}

// toEngineParser adapts the public parser to the engine's snapshot type.
func (c *Campaign) toEngineParser() engine.Parser {
	parser := c.parser
	return func(page string) (standings.Snapshot, error) {
		parsed, err := parser(page)
		if err != nil {
			return standings.Snapshot{}, err
		}
		snap := standings.Snapshot{
			Entries:    make([]standings.Entry, len(parsed.Entries)),
			TotalVotes: parsed.TotalVotes,
		}
		for i, e := range parsed.Entries {
			snap.Entries[i] = standings.Entry{Name: e.Name, Percentage: e.Percentage}
		}
		return snap, nil
	}
}

// newSessionID builds the per-process session identifier stamped into every
// journal and verification record: a wall-clock prefix for humans plus a
// short uuid fragment for uniqueness.
func newSessionID() string {
	return fmt.Sprintf("%s_%s",
		time.Now().Format("2006-01-02 15:04:05"),
		uuid.NewString()[:8],
	)
}

// statusEventToUpdate converts an internal status event to the public type.
func statusEventToUpdate(ev engine.StatusEvent) StatusUpdate {
	return StatusUpdate{
		Worker:  ev.Worker,
		State:   WorkerState(ev.State),
		Attempt: ev.Attempt,
		Message: ev.Message,
		Time:    ev.Time,
	}
}

// engineOutcomeToPublic converts an internal outcome to the public API type,
// mapping the internal "observed" gate onto nil pointers.
func engineOutcomeToPublic(out engine.Outcome) Outcome {
	pub := Outcome{
		Attempt:           out.Sequence,
		Worker:            out.Worker,
		Time:              out.Time,
		Success:           out.Success,
		ConsecutiveBehind: out.Behind,
		Tier:              out.Tier.String(),
		BackoffActive:     out.BackoffOn,
		Duration:          out.Duration,
	}
	if !out.Observed {
		return pub
	}
	first := out.TargetFirst
	pub.TargetFirst = &first
	if out.TargetRank > 0 {
		rank := out.TargetRank
		pct := out.TargetPct
		pub.TargetRank = &rank
		pub.TargetPercentage = &pct
	}
	if out.LeadDefined {
		margin := out.LeadMargin
		pub.LeadMargin = &margin
	}
	pub.Standings = make([]Entry, len(out.Standings.Entries))
	for i, e := range out.Standings.Entries {
		pub.Standings[i] = Entry{Name: e.Name, Percentage: e.Percentage}
	}
	return pub
}

// verifyRecordToReport converts an internal verification record to the
// public API type.
func verifyRecordToReport(rec verify.Record) VerificationReport {
	report := VerificationReport{
		Attempt:          rec.Attempts,
		TotalVotes:       rec.TotalVotes,
		TargetPercentage: rec.TargetPercentage,
		TargetVotes:      rec.TargetVotes,
		Time:             rec.Timestamp,
	}
	if rec.ExpectedIncrease != nil {
		expected := *rec.ExpectedIncrease
		report.ExpectedIncrease = &expected
	}
	if rec.ActualIncrease != nil {
		actual := *rec.ActualIncrease
		report.ActualIncrease = &actual
	}
	if rec.Effectiveness != nil {
		eff := *rec.Effectiveness
		report.Effectiveness = &eff
	}
	return report
}

// invokeStatusSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeStatusSafe(cb func(StatusUpdate), update StatusUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked", "panic", r, "worker", update.Worker)
		}
	}()
	cb(update)
}

// invokeOutcomeSafe calls an outcome callback with panic recovery.
func invokeOutcomeSafe(cb func(Outcome), outcome Outcome, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("outcome callback panicked", "panic", r, "attempt", outcome.Attempt)
		}
	}()
	cb(outcome)
}

// invokeVerificationSafe calls a verification callback with panic recovery.
func invokeVerificationSafe(cb func(VerificationReport), report VerificationReport, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("verification callback panicked", "panic", r, "attempt", report.Attempt)
		}
	}()
	cb(report)
}
