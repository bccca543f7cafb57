package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	votetool "github.com/matt-freeman/CutlerWhitakerVotingTool"
)

func main() {
	// start mock poll (see mock_poll.go)
	go StartMockPollServer(":9999")
	time.Sleep(100 * time.Millisecond)

	sub, err := votetool.NewHTTPSubmitter("http://localhost:9999/vote",
		votetool.SubmitForm("answer", "Cutler Whitaker"),
		votetool.SubmitSuccessMatch("thank you"),
	)
	if err != nil {
		slog.Error("failed to create submitter", "error", err)
		os.Exit(1)
	}
	defer sub.Close()

	dir := os.TempDir()
	campaign, err := votetool.New(
		votetool.WithTarget("Cutler Whitaker"),
		votetool.WithSubmitter(sub),
		votetool.WithMaxWorkers(3),
		// the demo poll is tiny, so join early and back off late
		votetool.WithWorkerThresholds(3, 2),
		votetool.WithLeadThreshold(5),
		votetool.WithJournalPath(filepath.Join(dir, "votetool_demo_journal.json")),
		votetool.WithVerificationPath(filepath.Join(dir, "votetool_demo_verify.json")),
		votetool.WithSaveStandings(),
		votetool.WithOutcomeCallback(func(o votetool.Outcome) {
			position := "standings unavailable"
			switch {
			case o.TargetFirst != nil && *o.TargetFirst && o.LeadMargin != nil:
				position = fmt.Sprintf("leading by %.1f pts", *o.LeadMargin)
			case o.TargetRank != nil:
				position = fmt.Sprintf("rank %d at %.1f%%", *o.TargetRank, *o.TargetPercentage)
			}
			fmt.Printf("attempt %d [%s]: %s, tier %s\n", o.Attempt, o.Worker, position, o.Tier)
		}),
		votetool.WithVerificationCallback(func(r votetool.VerificationReport) {
			if r.Effectiveness != nil {
				fmt.Printf("verification: %.0f%% of our recent votes registered\n", *r.Effectiveness)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create campaign", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  votetool demo")
	fmt.Println()
	fmt.Println("  Voting for Cutler Whitaker against a simulated poll on :9999.")
	fmt.Println("  Rival entrants gain votes on their own, so watch the pacing")
	fmt.Println("  tiers shift as the lead changes hands.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := campaign.Start(ctx); err != nil {
		slog.Error("campaign error", "error", err)
		os.Exit(1)
	}
}
