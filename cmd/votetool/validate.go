package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/config"
)

// validateCmd validates a config file without starting a campaign.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a votetool configuration file without starting a campaign.

This command parses the YAML, expands environment variables, and validates
all fields, including the submitter and parser definitions. It's useful
for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  votetool validate -c config.yaml
  votetool validate --config /etc/votetool/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// building exercises submitter and parser construction, which catches
	// problems plain field validation cannot (regex group counts)
	if _, err := config.Build(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	parserType := cfg.Parser.Type
	if parserType == "" {
		parserType = "block"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Target:      %s\n", cfg.Target)
	fmt.Printf("  Workers:     %d starting, %d max\n", cfg.StartWorkers, cfg.MaxWorkers)
	fmt.Printf("  Pacing:      back off past a %.1f pt lead, up to %s between votes\n",
		cfg.LeadThreshold, cfg.MaxBackoff.Duration())
	fmt.Printf("  Submitter:   %s\n", cfg.Submitter.Type)
	fmt.Printf("  Parser:      %s\n", parserType)
	fmt.Printf("  Journal:     %s\n", cfg.Journal)

	return nil
}
