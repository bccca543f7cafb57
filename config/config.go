// Package config provides YAML configuration parsing for the voting tool.
//
// This package enables running the tool as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	target: Cutler Whitaker
//	max_workers: 4
//	lead_threshold: 15.0
//
//	submitter:
//	  type: http
//	  url: https://poll.example.com/vote
//	  form:
//	    poll_id: "184"
//	    answer: "7"
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minBackoff is the smallest allowed backoff ceiling. Anything shorter makes
// the standard-tier escalation meaningless.
const minBackoff = 1 * time.Minute

// maxWorkerCap bounds the worker pool. Matches the SDK's option validation.
const maxWorkerCap = 32

// Config is the root configuration structure for a voting campaign.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Target is the entrant whose standing drives pacing. Required.
	// Matching against the poll's published names is case-insensitive.
	Target string `yaml:"target"`

	// MaxWorkers caps the worker pool, primary included. Defaults to 4.
	MaxWorkers int `yaml:"max_workers"`

	// StartWorkers is how many workers begin active. Defaults to 1.
	// Values above 1 pre-seed the pacing state so the extra workers
	// survive the first pool scan.
	StartWorkers int `yaml:"start_workers"`

	// LeadThreshold is the lead margin, in percentage points, at which
	// waits start backing off. Defaults to 15.
	LeadThreshold float64 `yaml:"lead_threshold"`

	// MaxBackoff caps the backed-off standard wait.
	// Accepts duration strings like "5m", "90s". Defaults to 5m.
	MaxBackoff Duration `yaml:"max_backoff"`

	// ForceParallel activates every worker at startup and keeps them
	// running regardless of the target's position.
	ForceParallel bool `yaml:"force_parallel"`

	// SaveStandings embeds the top standings in every journal record.
	SaveStandings bool `yaml:"save_standings"`

	// Journal is the audit journal path. Defaults to "voting_activity.json".
	Journal string `yaml:"journal"`

	// Verification is the verification log path.
	// Defaults to "vote_verification.json".
	Verification string `yaml:"verification"`

	// Thresholds tunes when auxiliary workers join.
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Submitter defines how votes are cast. Required.
	Submitter SubmitterConfig `yaml:"submitter"`

	// Parser defines how the result page is read. Defaults to the
	// built-in standings block parser.
	Parser ParserConfig `yaml:"parser"`
}

// ThresholdConfig sets the consecutive-behind ladder for auxiliary workers:
// worker i joins once the behind streak reaches base + i*step.
type ThresholdConfig struct {
	Base uint64 `yaml:"base"`
	Step uint64 `yaml:"step"`
}

// SubmitterConfig defines how a single vote is cast.
//
// Two types are supported. "http" posts a form to a vote URL:
//
//	submitter:
//	  type: http
//	  url: https://poll.example.com/vote
//	  method: POST
//	  form:
//	    answer: "7"
//	  success_match: thank you
//
// "exec" runs an external command and reads the result page from a file:
//
//	submitter:
//	  type: exec
//	  command: [./cast-vote.sh, "7"]
//	  result_page: /tmp/results.html
type SubmitterConfig struct {
	// Type is the submitter type: "http" or "exec". Required.
	Type string `yaml:"type"`

	// URL is the vote submission URL (http type).
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Method is the HTTP method (GET, POST). Defaults to POST.
	Method string `yaml:"method"`

	// Timeout is the per-request or per-run timeout.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each vote request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Form holds the form fields sent with each vote request.
	// Values support environment variable substitution.
	Form map[string]string `yaml:"form"`

	// ResultsURL is a separate standings page (http type). When empty the
	// vote response body is used as the result page.
	ResultsURL string `yaml:"results_url"`

	// SuccessMatch is text the vote response must contain for the
	// submission to count (http type). Case-insensitive.
	SuccessMatch string `yaml:"success_match"`

	// Command is the argv to run for each vote (exec type).
	Command []string `yaml:"command"`

	// ResultPage is the file the command leaves the standings page in
	// (exec type).
	ResultPage string `yaml:"result_page"`
}

// ParserConfig specifies how standings are read from the result page.
//
// Supported types:
//
//	parser:
//	  type: block              # built-in "Name - 12.3%" block scanner
//
//	parser:
//	  type: regex
//	  entry_pattern: '<li>(.*?) — ([\d.]+)%</li>'
//	  total_pattern: 'of ([\d,]+) ballots'
//
//	parser:
//	  type: json               # {"results": [...], "total": N}
type ParserConfig struct {
	// Type is the parser type: "block", "regex", "json".
	// Empty means "block".
	Type string `yaml:"type"`

	// EntryPattern is the per-entrant regexp (regex type). Must capture
	// the name and the percentage.
	EntryPattern string `yaml:"entry_pattern"`

	// TotalPattern is the total-votes regexp (regex type). Must capture
	// the vote count.
	TotalPattern string `yaml:"total_pattern"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in submitter URLs, headers, and form
// values. Defaults are applied for every unset tuning knob: 4 max workers,
// 1 start worker, lead threshold 15, max backoff 5m, thresholds 20+10i.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.StartWorkers == 0 {
		cfg.StartWorkers = 1
	}
	if cfg.LeadThreshold == 0 {
		cfg.LeadThreshold = 15.0
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = Duration(5 * time.Minute)
	}
	if cfg.Journal == "" {
		cfg.Journal = "voting_activity.json"
	}
	if cfg.Verification == "" {
		cfg.Verification = "vote_verification.json"
	}
	if cfg.Thresholds.Base == 0 {
		cfg.Thresholds.Base = 20
	}
	if cfg.Thresholds.Step == 0 {
		cfg.Thresholds.Step = 10
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Target == "" {
		return errors.New("target is required")
	}

	if c.MaxWorkers < 1 || c.MaxWorkers > maxWorkerCap {
		return fmt.Errorf("max_workers must be between 1 and %d, got %d", maxWorkerCap, c.MaxWorkers)
	}
	if c.StartWorkers < 1 {
		return fmt.Errorf("start_workers must be at least 1, got %d", c.StartWorkers)
	}
	if c.StartWorkers > c.MaxWorkers {
		return fmt.Errorf("start_workers (%d) cannot exceed max_workers (%d)", c.StartWorkers, c.MaxWorkers)
	}
	if c.LeadThreshold <= 0 {
		return fmt.Errorf("lead_threshold must be positive, got %g", c.LeadThreshold)
	}
	if c.MaxBackoff.Duration() < minBackoff {
		return fmt.Errorf("max_backoff must be at least %s, got %s", minBackoff, c.MaxBackoff.Duration())
	}

	if err := c.validateSubmitter(); err != nil {
		return err
	}
	return c.validateParser()
}

func (c *Config) validateSubmitter() error {
	s := &c.Submitter

	switch s.Type {
	case "":
		return errors.New("submitter: type is required (http or exec)")
	case "http":
		if s.URL == "" {
			return errors.New("submitter: url is required for type 'http'")
		}
		expanded, err := expandEnvVars(s.URL)
		if err != nil {
			return fmt.Errorf("submitter: url: %w", err)
		}
		s.URL = expanded
		if err := checkHTTPURL(s.URL); err != nil {
			return fmt.Errorf("submitter: url: %w", err)
		}

		if s.Method != "" && s.Method != "GET" && s.Method != "POST" {
			return fmt.Errorf("submitter: method must be GET or POST, got %q", s.Method)
		}

		if s.ResultsURL != "" {
			expanded, err := expandEnvVars(s.ResultsURL)
			if err != nil {
				return fmt.Errorf("submitter: results_url: %w", err)
			}
			s.ResultsURL = expanded
			if err := checkHTTPURL(s.ResultsURL); err != nil {
				return fmt.Errorf("submitter: results_url: %w", err)
			}
		}

		for k, v := range s.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("submitter: headers[%s]: %w", k, err)
			}
			s.Headers[k] = expanded
		}
		for k, v := range s.Form {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("submitter: form[%s]: %w", k, err)
			}
			s.Form[k] = expanded
		}

		if len(s.Command) > 0 || s.ResultPage != "" {
			return errors.New("submitter: command and result_page are only valid for type 'exec'")
		}
	case "exec":
		if len(s.Command) == 0 {
			return errors.New("submitter: command is required for type 'exec'")
		}
		if s.ResultPage == "" {
			return errors.New("submitter: result_page is required for type 'exec'")
		}
		if s.URL != "" || s.ResultsURL != "" || len(s.Form) > 0 {
			return errors.New("submitter: url, results_url, and form are only valid for type 'http'")
		}
	default:
		return fmt.Errorf("submitter: unknown type %q (expected 'http' or 'exec')", s.Type)
	}

	if s.Timeout != 0 && s.Timeout.Duration() < time.Second {
		return fmt.Errorf("submitter: timeout must be at least 1s if specified, got %s", s.Timeout.Duration())
	}

	return nil
}

func (c *Config) validateParser() error {
	p := &c.Parser

	switch p.Type {
	case "", "block", "json":
		if p.EntryPattern != "" || p.TotalPattern != "" {
			return fmt.Errorf("parser: entry_pattern and total_pattern are only valid for type 'regex'")
		}
	case "regex":
		if p.EntryPattern == "" {
			return errors.New("parser: entry_pattern is required for type 'regex'")
		}
		if p.TotalPattern == "" {
			return errors.New("parser: total_pattern is required for type 'regex'")
		}
		if _, err := regexp.Compile(p.EntryPattern); err != nil {
			return fmt.Errorf("parser: invalid entry_pattern: %w", err)
		}
		if _, err := regexp.Compile(p.TotalPattern); err != nil {
			return fmt.Errorf("parser: invalid total_pattern: %w", err)
		}
	default:
		return fmt.Errorf("parser: unknown type %q (expected 'block', 'regex', or 'json')", p.Type)
	}

	return nil
}

// checkHTTPURL validates that a URL parses and carries an http(s) scheme.
func checkHTTPURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}
