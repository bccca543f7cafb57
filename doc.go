// Package votetool automates repeated vote submission to an online poll,
// adapting its cadence and parallelism to the target entrant's position in
// the published standings.
//
// The core is an adaptive control loop. Each attempt submits one vote,
// parses the standings the poll returns, and classifies the result: while
// the target leads, waits are long and stretch exponentially as the lead
// grows; while it trails, waits shorten through four tiers and extra workers
// spin up as the losing streak crosses per-worker thresholds. Every attempt
// is appended to an on-disk audit journal, and the campaign periodically
// cross-checks its own attempt count against the poll's self-reported totals
// to estimate how many submissions actually land.
//
// # Quick Start
//
// Wire a submitter, create a campaign, and run it with graceful shutdown:
//
//	sub, _ := votetool.NewHTTPSubmitter("https://poll.example.com/vote",
//	    votetool.SubmitForm("poll_id", "184", "answer", "7"),
//	)
//	c, _ := votetool.New(
//	    votetool.WithTarget("Cutler Whitaker"),
//	    votetool.WithSubmitter(sub),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	c.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Campaigns use the functional options pattern:
//
//	c, err := votetool.New(
//	    votetool.WithTarget("Cutler Whitaker"),
//	    votetool.WithSubmitter(sub),
//	    votetool.WithMaxWorkers(8),
//	    votetool.WithLeadThreshold(15.0),
//	    votetool.WithMaxBackoff(5*time.Minute),
//	    votetool.WithJournalPath("voting_activity.json"),
//	)
//
// # Submitters and Parsers
//
// The act of casting one vote is pluggable behind the [Submitter] interface.
// Two implementations ship with the package: [NewHTTPSubmitter] for polls
// reachable with a form post, and [NewExecSubmitter] for polls that need an
// external automation command. Standings decoding is equally pluggable
// behind [ResultsParser], with [StandingsBlockParser], [RegexParser], and
// [JSONStandingsParser] built in.
//
// # Observing a Campaign
//
// A running campaign publishes worker transitions, attempt outcomes, and
// verification samples to callbacks registered with [WithStatusCallback],
// [WithOutcomeCallback], and [WithVerificationCallback]. The feed is
// observational only; dropping events under load is preferred to slowing
// the voting loop.
//
// # Architecture
//
// The machinery lives in internal packages: internal/engine (iteration loop
// and worker pool), internal/pacing (wait tiers and backoff),
// internal/track (shared counters), internal/pool (worker slots),
// internal/journal (audit log with summary reconciliation), internal/verify
// (effectiveness sampling), internal/standings (snapshot interpretation),
// internal/fetch (pooled HTTP client), and internal/display (terminal
// renderer used by the CLI). They are not part of the public API and may
// change without notice.
package votetool
