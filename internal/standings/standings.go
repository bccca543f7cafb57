// Package standings interprets parsed poll standings: who leads, where the
// target entrant sits, and how comfortable the target's lead is.
package standings

import "strings"

// Entry is one row of a published standings list.
type Entry struct {
	Name       string
	Percentage float64
}

// Snapshot is a parsed standings page with entries in rank order, descending
// by percentage. TotalVotes is 0 when the page did not report an overall
// total.
type Snapshot struct {
	Entries    []Entry
	TotalVotes int
}

// Target matches the entrant the campaign promotes. Matching is
// case-insensitive: a published name matches when it contains the target's
// full display name, or contains every whitespace-separated token of it.
type Target struct {
	display string
	full    string
	tokens  []string
}

// NewTarget builds a matcher for the given display name.
func NewTarget(display string) Target {
	full := strings.ToLower(strings.TrimSpace(display))
	return Target{
		display: strings.TrimSpace(display),
		full:    full,
		tokens:  strings.Fields(full),
	}
}

// String returns the display name the target was built from.
func (t Target) String() string { return t.display }

// Matches reports whether a published name refers to the target.
func (t Target) Matches(name string) bool {
	if t.full == "" {
		return false
	}
	n := strings.ToLower(name)
	if strings.Contains(n, t.full) {
		return true
	}
	for _, tok := range t.tokens {
		if !strings.Contains(n, tok) {
			return false
		}
	}
	return true
}

// Leader returns the first-place entry, if any.
func (s Snapshot) Leader() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[0], true
}

// First reports whether the target holds first place. An empty snapshot is
// never first.
func (s Snapshot) First(t Target) bool {
	lead, ok := s.Leader()
	return ok && t.Matches(lead.Name)
}

// Rank locates the target anywhere in the list. The returned rank is 1-based;
// ok is false when the target does not appear at all.
func (s Snapshot) Rank(t Target) (rank int, pct float64, ok bool) {
	for i, e := range s.Entries {
		if t.Matches(e.Name) {
			return i + 1, e.Percentage, true
		}
	}
	return 0, 0, false
}

// LeadMargin is the target's percentage-point lead over the runner-up. It is
// defined only when the target is first and a runner-up exists; a tie yields
// a margin of zero, not an undefined one.
func (s Snapshot) LeadMargin(t Target) (margin float64, ok bool) {
	if len(s.Entries) < 2 || !s.First(t) {
		return 0, false
	}
	return s.Entries[0].Percentage - s.Entries[1].Percentage, true
}
