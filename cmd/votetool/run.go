package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	votetool "github.com/matt-freeman/CutlerWhitakerVotingTool"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/config"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/display"
)

const (
	shutdownTimeout = 10 * time.Second
)

// runCmd starts a voting campaign.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a voting campaign",
	Long: `Start a voting campaign from a YAML configuration file.

The campaign will:
  - Load configuration from the specified YAML file
  - Submit votes for the configured target on an adaptive schedule
  - Journal every attempt and periodically verify effectiveness

The campaign runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  votetool run -c config.yaml
  votetool run --config /etc/votetool/config.yaml --plain`,
	RunE: runCampaign,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	runCmd.Flags().Bool("plain", false, "line-by-line output instead of the live display")
	_ = runCmd.MarkFlagRequired("config")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"target", cfg.Target,
		"max_workers", cfg.MaxWorkers,
		"submitter", cfg.Submitter.Type,
	)

	opts, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build campaign: %w", err)
	}

	plain, _ := cmd.Flags().GetBool("plain")
	if !display.IsTerminal(os.Stdout) {
		plain = true
	}
	renderer := display.New(os.Stdout, plain)

	opts = append(opts,
		votetool.WithLogger(logger),
		votetool.WithStatusCallback(func(u votetool.StatusUpdate) {
			renderer.WorkerStatus(u.Worker, u.State.String(), u.Attempt, u.Message)
		}),
		votetool.WithOutcomeCallback(func(o votetool.Outcome) {
			renderer.Summary(formatOutcome(o))
			if len(o.Standings) > 0 {
				renderer.Standings(formatStandings(o.Standings))
			}
			if !o.Success {
				renderer.Warn(fmt.Sprintf("attempt %d failed", o.Attempt))
			}
		}),
		votetool.WithVerificationCallback(func(r votetool.VerificationReport) {
			logger.Info("verification sample",
				"attempts", r.Attempt,
				"total_votes", r.TotalVotes,
				"target_votes", r.TargetVotes,
			)
			if r.Effectiveness != nil {
				renderer.Warn(fmt.Sprintf("verification: %.0f%% of recent votes registered", *r.Effectiveness))
			}
		}),
	)

	campaign, err := votetool.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer.Start()
	defer renderer.Stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- campaign.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("campaign error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("campaign error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// formatOutcome renders one attempt as a single summary line.
func formatOutcome(o votetool.Outcome) string {
	position := "standings unavailable"
	switch {
	case o.TargetFirst != nil && *o.TargetFirst:
		position = "in first place"
		if o.LeadMargin != nil {
			position = fmt.Sprintf("leading by %.1f pts", *o.LeadMargin)
		}
	case o.TargetRank != nil:
		position = fmt.Sprintf("rank %d", *o.TargetRank)
	}

	pct := ""
	if o.TargetPercentage != nil {
		pct = fmt.Sprintf(" at %.1f%%", *o.TargetPercentage)
	}

	extra := ""
	if o.ConsecutiveBehind > 0 {
		extra = fmt.Sprintf(", behind x%d (%s)", o.ConsecutiveBehind, o.Tier)
	} else if o.BackoffActive {
		extra = ", backoff active"
	}

	return fmt.Sprintf("attempt %d [%s]: %s%s%s", o.Attempt, o.Worker, position, pct, extra)
}

// formatStandings renders parsed standings as display lines.
func formatStandings(entries []votetool.Entry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%2d. %-30s %5.1f%%", i+1, e.Name, e.Percentage)
	}
	return lines
}
