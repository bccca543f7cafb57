package config

import (
	"fmt"
	"sort"

	votetool "github.com/matt-freeman/CutlerWhitakerVotingTool"
)

// Build converts a parsed configuration into SDK options.
//
// The returned slice is complete: passing it to [votetool.New] yields a
// campaign equivalent to the file. Callers append further options (status
// callbacks, a logger) before constructing.
func Build(cfg *Config) ([]votetool.Option, error) {
	submitter, err := buildSubmitter(cfg.Submitter)
	if err != nil {
		return nil, err
	}
	parser, err := buildParser(cfg.Parser)
	if err != nil {
		return nil, err
	}

	opts := []votetool.Option{
		votetool.WithTarget(cfg.Target),
		votetool.WithSubmitter(submitter),
		votetool.WithParser(parser),
		votetool.WithMaxWorkers(cfg.MaxWorkers),
		votetool.WithStartWorkers(cfg.StartWorkers),
		votetool.WithLeadThreshold(cfg.LeadThreshold),
		votetool.WithMaxBackoff(cfg.MaxBackoff.Duration()),
		votetool.WithJournalPath(cfg.Journal),
		votetool.WithVerificationPath(cfg.Verification),
		votetool.WithWorkerThresholds(cfg.Thresholds.Base, cfg.Thresholds.Step),
	}
	if cfg.ForceParallel {
		opts = append(opts, votetool.WithForceParallel())
	}
	if cfg.SaveStandings {
		opts = append(opts, votetool.WithSaveStandings())
	}

	return opts, nil
}

// buildSubmitter converts a SubmitterConfig to an SDK Submitter.
func buildSubmitter(sc SubmitterConfig) (votetool.Submitter, error) {
	switch sc.Type {
	case "http":
		var opts []votetool.SubmitOption
		if sc.Method != "" {
			opts = append(opts, votetool.SubmitMethod(sc.Method))
		}
		if sc.Timeout != 0 {
			opts = append(opts, votetool.SubmitTimeout(sc.Timeout.Duration()))
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, votetool.SubmitHeaders(mapToKeyValuePairs(sc.Headers)...))
		}
		if len(sc.Form) > 0 {
			opts = append(opts, votetool.SubmitForm(mapToKeyValuePairs(sc.Form)...))
		}
		if sc.ResultsURL != "" {
			opts = append(opts, votetool.SubmitResultsURL(sc.ResultsURL))
		}
		if sc.SuccessMatch != "" {
			opts = append(opts, votetool.SubmitSuccessMatch(sc.SuccessMatch))
		}
		return votetool.NewHTTPSubmitter(sc.URL, opts...)
	case "exec":
		var opts []votetool.ExecOption
		if sc.Timeout != 0 {
			opts = append(opts, votetool.ExecTimeout(sc.Timeout.Duration()))
		}
		return votetool.NewExecSubmitter(sc.Command, sc.ResultPage, opts...)
	default:
		// validation should catch this before we get here
		return nil, fmt.Errorf("unknown submitter type %q", sc.Type)
	}
}

// buildParser converts a ParserConfig to an SDK ResultsParser.
func buildParser(pc ParserConfig) (votetool.ResultsParser, error) {
	switch pc.Type {
	case "", "block":
		return votetool.StandingsBlockParser(), nil
	case "regex":
		return votetool.RegexParser(pc.EntryPattern, pc.TotalPattern)
	case "json":
		return votetool.JSONStandingsParser(), nil
	default:
		return nil, fmt.Errorf("unknown parser type %q", pc.Type)
	}
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
