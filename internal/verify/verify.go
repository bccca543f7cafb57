// Package verify periodically cross-checks the campaign's own attempt count
// against the poll's published totals to estimate how many submissions
// actually landed.
package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one effectiveness sample. The increase fields compare against
// the previous sample of the same session and are null on a session's first
// sample.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	SessionID        string    `json:"session_id"`
	Attempts         uint64    `json:"attempts"`
	TotalVotes       int       `json:"total_votes"`
	TargetPercentage float64   `json:"target_percentage"`
	TargetVotes      int       `json:"target_votes"`
	TargetRank       *int      `json:"target_rank"`
	ExpectedIncrease *uint64   `json:"expected_increase"`
	ActualIncrease   *int      `json:"actual_increase"`
	Effectiveness    *float64  `json:"effectiveness_percentage"`
}

// File is the verification document as stored on disk.
type File struct {
	Records []Record `json:"verification_records"`
}

// Log appends samples to one verification file, serialized on its own mutex.
type Log struct {
	mu      sync.Mutex
	path    string
	session string
	logger  *slog.Logger
}

// NewLog prepares a verification log for path, stamping records with the
// given session id.
func NewLog(path, session string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, session: session, logger: logger}
}

// Path returns the verification file's location.
func (l *Log) Path() string { return l.path }

// Sample derives a record from the campaign's attempt count and the poll's
// published standings, appends it, and returns it. The target's vote count
// is estimated as floor(totalVotes * percentage / 100). rank 0 means the
// target's position was unknown.
func (l *Log) Sample(attempts uint64, totalVotes int, percentage float64, rank int) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Timestamp:        time.Now(),
		SessionID:        l.session,
		Attempts:         attempts,
		TotalVotes:       totalVotes,
		TargetPercentage: percentage,
		TargetVotes:      int(math.Floor(float64(totalVotes) * percentage / 100.0)),
	}
	if rank > 0 {
		rec.TargetRank = &rank
	}

	f := l.load()
	if prev, ok := lastOfSession(f.Records, l.session); ok {
		expected := rec.Attempts - prev.Attempts
		actual := rec.TargetVotes - prev.TargetVotes
		rec.ExpectedIncrease = &expected
		rec.ActualIncrease = &actual
		if expected > 0 {
			eff := float64(actual) / float64(expected) * 100.0
			rec.Effectiveness = &eff
		}
	}

	f.Records = append(f.Records, rec)
	if err := l.store(f); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func lastOfSession(records []Record, session string) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].SessionID == session {
			return records[i], true
		}
	}
	return Record{}, false
}

func (l *Log) load() File {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("verification log unreadable, starting fresh", "path", l.path, "error", err)
		}
		return File{}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		l.logger.Warn("verification log corrupt, starting fresh", "path", l.path, "error", err)
		return File{}
	}
	return f
}

func (l *Log) store(f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode verification log: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".verify-*")
	if err != nil {
		return fmt.Errorf("failed to create verification temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write verification log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close verification temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace verification log: %w", err)
	}
	return nil
}

// Load reads a verification document, for offline inspection.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read verification log: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to decode verification log: %w", err)
	}
	return f, nil
}
