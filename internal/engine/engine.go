package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/journal"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pacing"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pool"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/standings"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/track"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/verify"
)

const (
	// primaryID names the worker that always runs.
	primaryID = "primary"

	// verifyEvery sets the verification cadence: the first attempt, then
	// each crossing of another 500 global attempts.
	verifyEvery = 500

	// workerJoinTimeout bounds how long shutdown waits per auxiliary worker.
	workerJoinTimeout = 5 * time.Second

	// standingsKept caps the standings block stored per audit record.
	standingsKept = 5
)

// Submitter casts one ballot and exposes the standings page the poll returned.
//
// This is the engine-internal contract; the public package re-declares it with
// identical methods so any public submitter satisfies this one structurally.
type Submitter interface {
	// Submit attempts one end-to-end vote submission. The boolean reports
	// whether a result page was obtained; transport errors are returned.
	Submit(ctx context.Context) (bool, error)

	// ResultPage returns the most recently captured standings page content.
	ResultPage(ctx context.Context) (string, error)
}

// Parser turns a raw standings page into a structured snapshot.
type Parser func(page string) (standings.Snapshot, error)

// Config carries everything the engine needs to run a campaign.
type Config struct {
	// Target is the entrant the campaign promotes.
	Target standings.Target

	// Submitter performs the actual vote submissions.
	Submitter Submitter

	// Parser decodes the standings page after each successful submission.
	Parser Parser

	// SessionID stamps every journal and verification record of this run.
	SessionID string

	// LeadThreshold is the lead margin (percentage points) above which the
	// campaign backs off.
	LeadThreshold float64

	// MaxBackoff caps the stretched standard wait and sets the backoff
	// factor's ceiling (MaxBackoff / 1 minute).
	MaxBackoff time.Duration

	// MaxWorkers is the total worker budget: one primary plus up to
	// MaxWorkers-1 auxiliary slots.
	MaxWorkers int

	// StartWorkers requests this many workers active from the start by
	// seeding the behind streak after the primary's first iteration.
	StartWorkers int

	// ForceParallel activates every slot at startup and suppresses auto-stop.
	ForceParallel bool

	// SaveStandings stores the top standings entries in each audit record.
	SaveStandings bool

	// ThresholdBase and ThresholdStep define slot i's start threshold as
	// base + i*step.
	ThresholdBase uint64
	ThresholdStep uint64

	// Journal receives one audit record per attempt.
	Journal *journal.Writer

	// Verification receives periodic effectiveness samples.
	Verification *verify.Log

	Logger *slog.Logger
}

// Engine owns the campaign's mutable state and its goroutines: the primary
// loop, the auxiliary worker pool, and the event feed.
type Engine struct {
	cfg      Config
	counters *track.Counters
	backoff  *pacing.Backoff
	slots    *pool.Slots
	events   chan Event
	logger   *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once

	// feedMu orders publishes against the feed's close: closing takes the
	// write side, so no publish can race the close or hit a closed channel.
	feedMu     sync.RWMutex
	feedClosed bool
}

// New assembles an engine. Config validation belongs to the caller; New only
// fills the ambient defaults.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	return &Engine{
		cfg:      cfg,
		counters: track.NewCounters(),
		backoff:  pacing.NewBackoff(cfg.MaxBackoff),
		slots:    pool.New(cfg.MaxWorkers-1, cfg.ThresholdBase, cfg.ThresholdStep, cfg.ForceParallel),
		events:   make(chan Event, eventBuffer),
		logger:   cfg.Logger,
	}
}

// Totals returns a consistent copy of the shared counters.
func (e *Engine) Totals() track.Totals {
	return e.counters.Snapshot()
}

// BackoffFactor returns the current standard-tier stretch factor.
func (e *Engine) BackoffFactor() float64 {
	return e.backoff.Factor()
}

// iteration is what one vote attempt learned; the primary loop and the
// auxiliary workers both drive their next decision from it.
type iteration struct {
	seq      uint64
	success  bool
	observed bool
	first    bool
	margin   float64
	marginOK bool
	behind   uint64
	tier     pacing.Tier
	snap     standings.Snapshot
}

// Run executes the primary loop until ctx is cancelled, then withdraws every
// auxiliary slot, waits for the workers with a bounded join, and closes the
// event feed. A panic escaping the loop body is recovered once and returned
// as an error after the same graceful shutdown.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer e.shutdown()
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			e.logger.Error("primary loop panic",
				"correlation_id", id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("primary loop panic (correlation_id: %s)", id)
		}
	}()

	e.logger.Info("campaign starting",
		"target", e.cfg.Target.String(),
		"max_workers", e.cfg.MaxWorkers,
		"start_workers", e.cfg.StartWorkers,
		"lead_threshold", e.cfg.LeadThreshold,
		"forced_parallel", e.slots.Forced(),
	)

	firstPass := true
	for {
		if ctx.Err() != nil {
			return nil
		}

		it := e.iterate(ctx, primaryID, true)

		// auxiliary startup is deferred past the first iteration so the
		// journal and session artifacts exist before any worker writes.
		if firstPass {
			firstPass = false
			e.applyStartupMode(ctx)
		}

		e.maintainBackoff(it)
		e.scanPool(ctx, it)

		wait, tier := e.nextWait()
		e.publishStatus(primaryID, StateIdle, it.seq, "")
		e.logger.Debug("primary waiting", "tier", tier.String(), "wait", wait.String())
		if !sleepSliced(ctx, wait, nil) {
			return nil
		}
	}
}

// iterate performs one complete vote attempt for the named worker: submit,
// classify, journal, publish. Every failure mode is absorbed here; iterate
// never returns an error.
func (e *Engine) iterate(ctx context.Context, workerID string, primary bool) iteration {
	it := iteration{seq: e.counters.NextAttempt()}
	e.publishStatus(workerID, StateProcessing, it.seq, "")

	start := time.Now()
	ok, err := e.safeSubmit(ctx)
	if err != nil {
		e.logger.Warn("submission failed", "worker", workerID, "attempt", it.seq, "error", err)
		ok = false
	}
	it.success = ok

	// backoff flag reflects the factor as it stood at iteration start, before
	// the primary loop's post-iteration raise or reset.
	priorFactor := e.backoff.Factor()

	if ok {
		it.snap = e.safeStandings(ctx)
		it.observed = len(it.snap.Entries) > 0
	}

	switch {
	case !ok:
		// failed attempt: tier is speculative from the unchanged streak
		it.behind = e.counters.Behind()
		it.tier = pacing.ForBehind(it.behind)
	case !it.observed:
		// degenerate success: standings unreadable, streak untouched
		e.counters.RecordNeutral()
		it.behind = e.counters.Behind()
		it.tier = pacing.TierStandard
	case it.snap.First(e.cfg.Target):
		it.first = true
		e.counters.RecordFirst()
		it.behind = 0
		it.tier = pacing.TierStandard
		it.margin, it.marginOK = it.snap.LeadMargin(e.cfg.Target)
	default:
		it.behind, it.tier = e.counters.RecordBehind()
	}
	duration := time.Since(start)

	backoffActive := it.first && it.marginOK && priorFactor > 1.0

	if primary && it.observed && it.snap.TotalVotes > 0 {
		e.maybeVerify(it)
	}

	rec := journal.Record{
		Sequence:          it.seq,
		SessionID:         e.cfg.SessionID,
		WorkerID:          workerID,
		Timestamp:         time.Now(),
		Success:           it.success,
		ConsecutiveBehind: it.behind,
		Tier:              it.tier.String(),
		BackoffActive:     backoffActive,
		DurationSeconds:   duration.Seconds(),
	}
	// failed attempts record an explicit false rather than a null: nothing
	// was submitted, so the target certainly was not observed first.
	if it.observed || !it.success {
		first := it.first
		rec.TargetFirst = &first
		if rank, pct, found := it.snap.Rank(e.cfg.Target); found {
			rec.TargetRank = &rank
			rec.TargetPercentage = &pct
		}
		if it.marginOK {
			margin := it.margin
			rec.LeadPercentage = &margin
		}
		if e.cfg.SaveStandings {
			rec.Standings = topStandings(it.snap, standingsKept)
		}
	}
	if err := e.cfg.Journal.Append(rec); err != nil {
		e.logger.Warn("journal append failed", "attempt", it.seq, "error", err)
	}

	e.publishOutcome(workerID, it, rec, duration, backoffActive)
	return it
}

// maybeVerify claims the verification slot and takes a sample. Only the
// primary worker calls it, and only with server-reported totals in hand, but
// the cadence runs on the global attempt count so a 500 crossing landed by an
// auxiliary worker is still sampled on the primary's next pass.
func (e *Engine) maybeVerify(it iteration) {
	attempts := e.counters.Attempts()
	if !e.counters.MarkVerification(attempts, verifyEvery) {
		return
	}
	rank, pct, found := it.snap.Rank(e.cfg.Target)
	if !found {
		rank, pct = 0, 0
	}
	rec, err := e.cfg.Verification.Sample(attempts, it.snap.TotalVotes, pct, rank)
	if err != nil {
		e.logger.Warn("verification sample failed", "attempt", it.seq, "error", err)
		return
	}
	attrs := []any{
		"attempt", it.seq,
		"total_votes", rec.TotalVotes,
		"target_votes", rec.TargetVotes,
	}
	if rec.Effectiveness != nil {
		attrs = append(attrs, "effectiveness_pct", *rec.Effectiveness)
	}
	e.logger.Info("verification sample", attrs...)
	e.publish(Event{Kind: KindVerification, Verification: rec})
}

// applyStartupMode runs once, after the primary's first iteration: forced
// mode activates every slot immediately; otherwise a start-workers request
// seeds the behind streak so the usual threshold rules admit the extra
// workers on the next pool scan.
func (e *Engine) applyStartupMode(ctx context.Context) {
	if e.slots.Forced() {
		for _, i := range e.slots.ActivateAll() {
			e.launchWorker(ctx, i)
		}
		e.logger.Info("forced parallel mode, all workers started", "workers", e.slots.Len())
		return
	}
	if e.cfg.StartWorkers <= 1 || e.slots.Len() == 0 {
		return
	}
	idx := e.cfg.StartWorkers - 2
	if idx >= e.slots.Len() {
		idx = e.slots.Len() - 1
	}
	seeded := e.counters.SeedBehind(e.slots.Threshold(idx))
	e.logger.Info("startup fast-path seeded",
		"requested_workers", e.cfg.StartWorkers,
		"behind", seeded,
	)
}

// maintainBackoff raises or resets the standard-tier factor from the latest
// observation. Only a first-place observation touches the factor.
func (e *Engine) maintainBackoff(it iteration) {
	if !it.success || !it.observed || !it.first {
		return
	}
	if it.marginOK && it.margin >= e.cfg.LeadThreshold {
		factor := e.backoff.Raise()
		e.logger.Info("lead comfortable, backoff raised",
			"margin", it.margin,
			"threshold", e.cfg.LeadThreshold,
			"factor", factor,
		)
		return
	}
	if e.backoff.Reset() {
		e.logger.Info("lead narrowed, backoff reset", "margin", it.margin)
	}
}

// scanPool starts slots whose thresholds the streak has reached and stops
// slots no longer justified by it.
func (e *Engine) scanPool(ctx context.Context, it iteration) {
	behind := e.counters.Behind()
	for _, i := range e.slots.DueToStart(behind) {
		e.launchWorker(ctx, i)
		e.logger.Info("auxiliary worker started",
			"worker", workerName(i),
			"threshold", e.slots.Threshold(i),
			"behind", behind,
		)
	}
	targetFirst := it.success && it.observed && it.first
	for _, i := range e.slots.DueToStop(behind, targetFirst) {
		e.logger.Info("auxiliary worker stop requested",
			"worker", workerName(i),
			"behind", behind,
			"target_first", targetFirst,
		)
	}
}

// launchWorker spawns the goroutine backing a claimed slot. The slot's
// running flag is cleared only after the goroutine fully exits, which is what
// makes restarts safe.
func (e *Engine) launchWorker(ctx context.Context, slot int) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.slots.MarkStopped(slot)
		e.runWorker(ctx, slot)
	}()
}

// runWorker is one auxiliary worker's loop: check the continue predicate,
// vote, self-stop when the target leads, pause briefly.
func (e *Engine) runWorker(ctx context.Context, slot int) {
	id := workerName(slot)
	for {
		if ctx.Err() != nil {
			return
		}
		if !e.slots.ShouldContinue(slot, e.counters.Behind()) {
			e.slots.Deactivate(slot)
			e.publishStatus(id, StateMessage, 0, "stopping: no longer needed")
			e.logger.Info("auxiliary worker stopping", "worker", id)
			return
		}

		it := e.iterate(ctx, id, false)

		if it.success && it.observed && it.first && !e.slots.Forced() {
			e.slots.Deactivate(slot)
			e.publishStatus(id, StateMessage, it.seq, "stopping: target leads")
			e.logger.Info("auxiliary worker stopping, target leads", "worker", id)
			return
		}

		e.publishStatus(id, StateIdle, it.seq, "")
		sleepSliced(ctx, pacing.WorkerPause(), func() bool {
			return !e.slots.Active(slot)
		})
	}
}

// nextWait draws the primary loop's pause from the tier the current streak
// selects, stretching standard waits by the backoff factor.
func (e *Engine) nextWait() (time.Duration, pacing.Tier) {
	tier := pacing.ForBehind(e.counters.Behind())
	draw := pacing.Draw(tier)
	if tier != pacing.TierStandard {
		return draw, tier
	}
	factor := e.backoff.Factor()
	wait := pacing.StandardWait(draw, factor, e.cfg.MaxBackoff)
	if factor > 1.0 {
		e.counters.RecordBackoffWait()
		e.logger.Info("standard wait stretched",
			"draw", draw.String(),
			"factor", factor,
			"wait", wait.String(),
		)
	}
	return wait, tier
}

// shutdown withdraws every slot, waits for the auxiliary goroutines with a
// bounded join, closes the feed, and logs the final totals. A worker that
// outlives the join (its submission may block past the timeout) finds the
// feed marked closed and drops its remaining events.
func (e *Engine) shutdown() {
	e.slots.DeactivateAll()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	limit := workerJoinTimeout
	if n := e.slots.Len(); n > 1 {
		limit = time.Duration(n) * workerJoinTimeout
	}
	select {
	case <-done:
	case <-time.After(limit):
		e.logger.Warn("auxiliary workers did not stop in time", "timeout", limit.String())
	}

	e.closeOnce.Do(func() {
		e.feedMu.Lock()
		e.feedClosed = true
		close(e.events)
		e.feedMu.Unlock()
	})

	totals := e.counters.Snapshot()
	e.logger.Info("campaign finished",
		"attempts", totals.Attempts,
		"standard", totals.Standard,
		"initial_accelerated", totals.InitialAccelerated,
		"accelerated", totals.Accelerated,
		"super_accelerated", totals.SuperAccelerated,
		"backoff_waits", totals.BackoffWaits,
		"behind", totals.Behind,
		"backoff_factor", e.backoff.Factor(),
	)
}

// safeSubmit calls the submitter with panic recovery. A panicking submitter
// is a failed attempt with a correlation id, never a crashed worker.
func (e *Engine) safeSubmit(ctx context.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			e.logger.Error("submitter panic",
				"correlation_id", id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			ok = false
			err = fmt.Errorf("submitter panic (correlation_id: %s)", id)
		}
	}()
	return e.cfg.Submitter.Submit(ctx)
}

// safeStandings fetches and parses the standings page, absorbing errors and
// panics into an empty snapshot.
func (e *Engine) safeStandings(ctx context.Context) (snap standings.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			e.logger.Error("standings parse panic",
				"correlation_id", id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			snap = standings.Snapshot{}
		}
	}()

	page, err := e.cfg.Submitter.ResultPage(ctx)
	if err != nil {
		e.logger.Warn("result page unavailable", "error", err)
		return standings.Snapshot{}
	}
	parsed, err := e.cfg.Parser(page)
	if err != nil {
		e.logger.Warn("standings parse failed", "error", err)
		return standings.Snapshot{}
	}
	return parsed
}

// publishOutcome converts an iteration into its feed event.
func (e *Engine) publishOutcome(workerID string, it iteration, rec journal.Record, duration time.Duration, backoffActive bool) {
	out := Outcome{
		Sequence:    it.seq,
		Worker:      workerID,
		Time:        rec.Timestamp,
		Success:     it.success,
		Observed:    it.observed,
		TargetFirst: it.first,
		Behind:      it.behind,
		Tier:        it.tier,
		LeadMargin:  it.margin,
		LeadDefined: it.marginOK,
		BackoffOn:   backoffActive,
		Duration:    duration,
		Standings:   it.snap,
	}
	if rec.TargetRank != nil {
		out.TargetRank = *rec.TargetRank
		out.TargetPct = *rec.TargetPercentage
	}
	e.publish(Event{Kind: KindOutcome, Outcome: out})
}

// workerName formats the public id of an auxiliary slot (1-based).
func workerName(slot int) string {
	return fmt.Sprintf("worker-%d", slot+1)
}

// topStandings copies the leading entries into journal form.
func topStandings(snap standings.Snapshot, n int) []journal.Standing {
	if len(snap.Entries) < n {
		n = len(snap.Entries)
	}
	out := make([]journal.Standing, n)
	for i := 0; i < n; i++ {
		out[i] = journal.Standing{
			Name:       snap.Entries[i].Name,
			Percentage: snap.Entries[i].Percentage,
		}
	}
	return out
}

// sleepSliced waits out d in one-second slices, checking ctx between slices
// and the optional stop predicate each slice. It reports whether the full
// wait completed.
func sleepSliced(ctx context.Context, d time.Duration, stop func() bool) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if stop != nil && stop() {
			return false
		}
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
