package votetool

import "context"

// Entry is one row of the poll's published standings.
type Entry struct {
	// Name is the entrant's name as published.
	Name string

	// Percentage is the entrant's share of the vote, in [0, 100].
	Percentage float64
}

// Standings is a parsed results page: entries in rank order plus the poll's
// self-reported total, when the page carries one.
type Standings struct {
	// Entries is ordered by descending percentage; index 0 is first place.
	// The built-in parsers enforce this ordering; custom parsers must
	// supply it.
	Entries []Entry

	// TotalVotes is the poll's overall vote count. Zero means the page did
	// not report a total, which disables verification sampling.
	TotalVotes int
}

// Submitter casts one ballot and exposes the result page the poll returned.
//
// Implementations wrap whatever actually performs the submission: an HTTP
// form post ([NewHTTPSubmitter]), an external automation command
// ([NewExecSubmitter]), or anything custom. Submit is called concurrently by
// every worker and must be safe for concurrent use.
type Submitter interface {
	// Submit attempts one end-to-end vote submission, including any page or
	// overlay handling the poll requires. It reports whether a result page
	// was obtained; transport-level failures are returned as errors. Either
	// a false report or an error counts as a failed attempt.
	Submit(ctx context.Context) (bool, error)

	// ResultPage returns the most recently captured standings page content,
	// typically a side-channel artifact of the last Submit.
	ResultPage(ctx context.Context) (string, error)
}

// ResultsParser turns a raw standings page into [Standings].
//
// Parsers are pure functions: same page, same result. Built-in parsers are
// [StandingsBlockParser], [RegexParser], [MustRegexParser], and
// [JSONStandingsParser]. Parse failures surface as failed observations in
// the campaign, never as fatal errors.
type ResultsParser func(page string) (Standings, error)
