// Package engine drives the vote campaign: it runs the primary iteration
// loop, scales auxiliary workers up and down against the consecutive-behind
// streak, maintains the lead backoff factor, and emits every observation to
// a buffered event feed.
//
// The engine owns the campaign's goroutines. Run blocks until its context is
// cancelled, then withdraws every worker slot, waits for the goroutines with
// a bounded join, and closes the feed so consumers drain and stop.
package engine
