package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/journal"
)

// statsCmd summarizes an existing journal file offline.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a voting journal",
	Long: `Summarize an existing voting journal without starting a campaign.

Prints the lifetime totals the journal carries: submissions per pacing
tier, backoff waits, and the most recent attempts.

Example:
  votetool stats -f voting_activity.json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("file", "f", "voting_activity.json", "path to the journal file")
	statsCmd.Flags().IntP("recent", "n", 5, "how many recent attempts to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	recent, _ := cmd.Flags().GetInt("recent")

	file, err := journal.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load journal: %w", err)
	}

	s := file.Summary
	fmt.Printf("Journal: %s\n", path)
	fmt.Printf("  Target:          %s\n", file.TargetName)
	fmt.Printf("  Session started: %s\n", file.SessionStart.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Total submitted: %d\n", s.TotalSubmitted)
	fmt.Printf("  By tier:         standard %d, initial %d, accelerated %d, super %d\n",
		s.Standard, s.InitialAccelerated, s.Accelerated, s.SuperAccelerated)
	fmt.Printf("  Backoff waits:   %d\n", s.BackoffWaits)
	fmt.Printf("  Records kept:    %d\n", len(file.Records))

	if recent > len(file.Records) {
		recent = len(file.Records)
	}
	if recent > 0 {
		fmt.Printf("\nMost recent attempts:\n")
		for _, rec := range file.Records[len(file.Records)-recent:] {
			position := "standings unavailable"
			switch {
			case rec.TargetFirst != nil && *rec.TargetFirst:
				position = "first"
			case rec.TargetRank != nil:
				position = fmt.Sprintf("rank %d", *rec.TargetRank)
			}
			pct := ""
			if rec.TargetPercentage != nil {
				pct = fmt.Sprintf(" (%.1f%%)", *rec.TargetPercentage)
			}
			fmt.Printf("  #%-6d %s  %-9s %s%s\n",
				rec.Sequence,
				rec.Timestamp.Format("15:04:05"),
				rec.Tier,
				position,
				pct,
			)
		}
	}

	return nil
}
