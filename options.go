package votetool

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// campaignConfig holds mutable state during Campaign construction.
type campaignConfig struct {
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

// Option configures a [Campaign] during construction.
//
// Options implement the functional options pattern and return an error when
// validation fails. [WithTarget] and [WithSubmitter] are required; everything
// else has a sensible default.
type Option func(*campaignConfig) error

// WithTarget names the entrant the campaign votes for. Matching against the
// published standings is case-insensitive: an entry matches when it contains
// the full display name or every whitespace-separated token of it.
//
// Required. Returns an error if the name is empty.
func WithTarget(name string) Option {
	return func(cfg *campaignConfig) error {
		if name == "" {
			return errors.New("target name cannot be empty")
		}
		cfg.target = name
		return nil
	}
}

// WithSubmitter sets the [Submitter] that performs the actual vote
// submissions. Required.
//
// Returns an error if the submitter is nil.
func WithSubmitter(s Submitter) Option {
	return func(cfg *campaignConfig) error {
		if s == nil {
			return errors.New("submitter cannot be nil")
		}
		cfg.submitter = s
		return nil
	}
}

// WithParser sets the [ResultsParser] that decodes the standings page.
// Defaults to [StandingsBlockParser].
//
// Returns an error if the parser is nil.
func WithParser(p ResultsParser) Option {
	return func(cfg *campaignConfig) error {
		if p == nil {
			return errors.New("parser cannot be nil")
		}
		cfg.parser = p
		return nil
	}
}

// WithMaxWorkers sets the total worker budget: one primary worker plus up to
// n-1 auxiliary workers the campaign may scale out to. Defaults to 4.
//
// Returns an error if n is below 1 or above 32.
func WithMaxWorkers(n int) Option {
	return func(cfg *campaignConfig) error {
		if n < 1 || n > 32 {
			return fmt.Errorf("max workers must be between 1 and 32, got %d", n)
		}
		cfg.maxWorkers = n
		return nil
	}
}

// WithStartWorkers requests k workers active from the start. Values above 1
// seed the consecutive-behind streak after the primary's first iteration so
// the usual threshold rules admit k-1 auxiliary workers immediately.
// Defaults to 1 (primary only).
//
// Returns an error if k is below 1. New additionally rejects k above the
// configured max workers.
func WithStartWorkers(k int) Option {
	return func(cfg *campaignConfig) error {
		if k < 1 {
			return fmt.Errorf("start workers must be at least 1, got %d", k)
		}
		cfg.startWorkers = k
		return nil
	}
}

// WithLeadThreshold sets the lead margin, in percentage points, at or above
// which the campaign considers its lead comfortable and backs off. Defaults
// to 15.0.
//
// Returns an error if the threshold is not positive.
func WithLeadThreshold(points float64) Option {
	return func(cfg *campaignConfig) error {
		if points <= 0 {
			return fmt.Errorf("lead threshold must be positive, got %v", points)
		}
		cfg.leadThreshold = points
		return nil
	}
}

// WithMaxBackoff caps the stretched standard-tier wait. The backoff factor's
// ceiling is derived from it as max / 1 minute. Defaults to 5 minutes.
//
// Returns an error if the duration is below 1 minute.
func WithMaxBackoff(max time.Duration) Option {
	return func(cfg *campaignConfig) error {
		if max < time.Minute {
			return fmt.Errorf("max backoff must be at least 1m, got %s", max)
		}
		cfg.maxBackoff = max
		return nil
	}
}

// WithForceParallel starts every auxiliary worker immediately and keeps them
// running regardless of the target's position. Workers then only stop at
// shutdown.
func WithForceParallel() Option {
	return func(cfg *campaignConfig) error {
		cfg.forceParallel = true
		return nil
	}
}

// WithSaveStandings stores the top standings entries in every audit record,
// trading journal size for a replayable view of the race.
func WithSaveStandings() Option {
	return func(cfg *campaignConfig) error {
		cfg.saveStandings = true
		return nil
	}
}

// WithJournalPath sets where the audit journal is written.
// Defaults to "voting_activity.json".
//
// Returns an error if the path is empty.
func WithJournalPath(path string) Option {
	return func(cfg *campaignConfig) error {
		if path == "" {
			return errors.New("journal path cannot be empty")
		}
		cfg.journalPath = path
		return nil
	}
}

// WithVerificationPath sets where verification samples are written.
// Defaults to "vote_verification.json".
//
// Returns an error if the path is empty.
func WithVerificationPath(path string) Option {
	return func(cfg *campaignConfig) error {
		if path == "" {
			return errors.New("verification path cannot be empty")
		}
		cfg.verificationPath = path
		return nil
	}
}

// WithWorkerThresholds sets the auxiliary start thresholds: slot i starts
// when the consecutive-behind streak reaches base + i*step. Defaults to base
// 20, step 10.
//
// Returns an error if either value is zero.
func WithWorkerThresholds(base, step uint64) Option {
	return func(cfg *campaignConfig) error {
		if base == 0 {
			return errors.New("threshold base must be positive")
		}
		if step == 0 {
			return errors.New("threshold step must be positive")
		}
		cfg.thresholdBase = base
		cfg.thresholdStep = step
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *campaignConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called on every worker state
// transition.
//
// Callbacks for all three feed kinds run synchronously on a single consumer
// goroutine, in registration order. They must not block; long work belongs
// on the callback's own goroutine. Panics inside a callback are recovered
// and logged, never propagated. Nil callbacks are silently ignored.
func WithStatusCallback(cb func(StatusUpdate)) Option {
	return func(cfg *campaignConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithOutcomeCallback registers a function called after every finished vote
// attempt. See [WithStatusCallback] for delivery semantics.
func WithOutcomeCallback(cb func(Outcome)) Option {
	return func(cfg *campaignConfig) error {
		if cb == nil {
			return nil
		}
		cfg.outcomeCallbacks = append(cfg.outcomeCallbacks, cb)
		return nil
	}
}

// WithVerificationCallback registers a function called on every verification
// sample. See [WithStatusCallback] for delivery semantics.
func WithVerificationCallback(cb func(VerificationReport)) Option {
	return func(cfg *campaignConfig) error {
		if cb == nil {
			return nil
		}
		cfg.verificationCallbacks = append(cfg.verificationCallbacks, cb)
		return nil
	}
}
