package votetool

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Patterns the block parser recognizes: one standings entry per line with a
// trailing percentage, and a self-reported overall total anywhere on the
// page. Thousands separators in the total are tolerated.
var (
	blockEntryPattern = regexp.MustCompile(`^\s*(?:\d+[.)]\s*)?(.*?)\s*[-–—:]*\s*(\d+(?:\.\d+)?)\s*%`)
	blockTotalPattern = regexp.MustCompile(`(?i)total[^0-9]*?([\d,]+)\s*votes?`)
)

// StandingsBlockParser returns a [ResultsParser] for line-oriented result
// blocks, the format most poll result pages reduce to once markup is
// stripped:
//
//  1. Cutler Whitaker - 35.4%
//  2. Dylan Papushak - 18.0%
//     Total: 12,345 votes
//
// Rank prefixes, separator punctuation, and vote-count suffixes are all
// optional; any line ending in "N%" or "N.M%" after a name is an entry.
// Duplicate names (case-insensitive) keep their first occurrence, and entries
// come back ordered by descending percentage whatever order the page listed
// them in. Lines that match nothing are skipped, so the parser can run over a
// whole page.
//
// This is the default parser when [WithParser] is not given.
func StandingsBlockParser() ResultsParser {
	return func(page string) (Standings, error) {
		var s Standings
		for _, line := range strings.Split(page, "\n") {
			m := blockEntryPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			pct, err := strconv.ParseFloat(m[2], 64)
			if err != nil || pct > 100 {
				continue
			}
			s.Entries = append(s.Entries, Entry{Name: name, Percentage: pct})
		}
		s.Entries = collapseEntries(s.Entries)

		if m := blockTotalPattern.FindStringSubmatch(page); m != nil {
			if total, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				s.TotalVotes = total
			}
		}
		return s, nil
	}
}

// RegexParser returns a [ResultsParser] built from user-supplied patterns.
//
// entryPattern must contain at least two capture groups: group 1 is the
// entrant's name, group 2 the percentage. It is applied repeatedly over the
// page. totalPattern is optional; when non-empty it must contain one capture
// group holding the overall vote total (thousands separators tolerated).
//
// Returns an error if either pattern fails to compile or entryPattern has
// fewer than two capture groups.
//
// Example:
//
//	parser, err := votetool.RegexParser(
//	    `<td class="name">([^<]+)</td>\s*<td>([\d.]+)%</td>`,
//	    `id="total">([\d,]+)<`,
//	)
func RegexParser(entryPattern, totalPattern string) (ResultsParser, error) {
	entryRe, err := regexp.Compile(entryPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid entry pattern: %w", err)
	}
	if entryRe.NumSubexp() < 2 {
		return nil, fmt.Errorf("entry pattern needs 2 capture groups (name, percentage), has %d",
			entryRe.NumSubexp())
	}

	var totalRe *regexp.Regexp
	if totalPattern != "" {
		totalRe, err = regexp.Compile(totalPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid total pattern: %w", err)
		}
		if totalRe.NumSubexp() < 1 {
			return nil, fmt.Errorf("total pattern needs 1 capture group, has %d", totalRe.NumSubexp())
		}
	}

	return func(page string) (Standings, error) {
		var s Standings
		for _, m := range entryRe.FindAllStringSubmatch(page, -1) {
			name := strings.TrimSpace(m[1])
			pct, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
			if name == "" || err != nil {
				continue
			}
			s.Entries = append(s.Entries, Entry{Name: name, Percentage: pct})
		}
		s.Entries = collapseEntries(s.Entries)

		if totalRe != nil {
			if m := totalRe.FindStringSubmatch(page); m != nil {
				if total, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(m[1]), ",", "")); err == nil {
					s.TotalVotes = total
				}
			}
		}
		return s, nil
	}, nil
}

// MustRegexParser is like [RegexParser] but panics if a pattern is invalid.
//
// Use this for compile-time constant patterns where you want to fail fast.
// For runtime patterns, use [RegexParser] instead.
func MustRegexParser(entryPattern, totalPattern string) ResultsParser {
	parser, err := RegexParser(entryPattern, totalPattern)
	if err != nil {
		panic("votetool: " + err.Error())
	}
	return parser
}

// jsonStandings mirrors the JSON payload shape some polls expose directly.
type jsonStandings struct {
	Results []struct {
		Name       string  `json:"name"`
		Percentage float64 `json:"percentage"`
	} `json:"results"`
	Total int `json:"total"`
}

// JSONStandingsParser returns a [ResultsParser] for polls that expose
// results as JSON:
//
//	{"results": [{"name": "Cutler Whitaker", "percentage": 35.4}], "total": 12345}
//
// Decode failures are returned as errors, which the campaign records as a
// failed observation.
func JSONStandingsParser() ResultsParser {
	return func(page string) (Standings, error) {
		var payload jsonStandings
		if err := json.Unmarshal([]byte(page), &payload); err != nil {
			return Standings{}, fmt.Errorf("failed to decode standings JSON: %w", err)
		}
		s := Standings{TotalVotes: payload.Total}
		for _, r := range payload.Results {
			s.Entries = append(s.Entries, Entry{Name: r.Name, Percentage: r.Percentage})
		}
		s.Entries = collapseEntries(s.Entries)
		return s, nil
	}
}

// collapseEntries drops case-insensitive duplicate names, keeping the first
// occurrence, then orders the survivors by descending percentage so index 0
// is the leader no matter how the page listed them. The sort is stable, so
// ties keep their page order.
func collapseEntries(entries []Entry) []Entry {
	if len(entries) < 2 {
		return entries
	}
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage > out[j].Percentage
	})
	return out
}
