// Package journal persists one audit record per vote attempt to a JSON file
// and keeps the file's summary consistent with history the records no longer
// show.
//
// The summary is never trusted to match the records: sessions may prune
// records (the file caps how many it keeps) while their contribution to the
// totals must survive. Every append therefore replays the records it can see,
// derives a historical offset from what the stored summary claims beyond
// them, and rebuilds the summary as offset + replayed + the new record.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pacing"
)

// maxRecords bounds the record array; older records fold into the summary's
// historical offsets when trimmed.
const maxRecords = 10000

// Summary aggregates the journal's attempts. Tier and backoff tallies count
// every attempt; TotalSubmitted counts only successful submissions.
type Summary struct {
	TotalSubmitted     uint64 `json:"total_submitted"`
	Standard           uint64 `json:"standard"`
	InitialAccelerated uint64 `json:"initial_accelerated"`
	Accelerated        uint64 `json:"accelerated"`
	SuperAccelerated   uint64 `json:"super_accelerated"`
	BackoffWaits       uint64 `json:"backoff_waits"`
}

// Standing is one published entry captured alongside a record when standings
// saving is enabled.
type Standing struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Record is the audit trail of a single vote attempt. Pointer fields are
// null in the file when the attempt could not observe standings.
type Record struct {
	Sequence          uint64     `json:"sequence"`
	SessionID         string     `json:"session_id"`
	WorkerID          string     `json:"worker_id"`
	Timestamp         time.Time  `json:"timestamp"`
	Success           bool       `json:"success"`
	TargetFirst       *bool      `json:"target_first"`
	TargetRank        *int       `json:"target_rank"`
	TargetPercentage  *float64   `json:"target_percentage"`
	ConsecutiveBehind uint64     `json:"consecutive_behind"`
	Tier              string     `json:"tier"`
	LeadPercentage    *float64   `json:"lead_percentage"`
	BackoffActive     bool       `json:"backoff_active"`
	DurationSeconds   float64    `json:"duration_seconds"`
	Standings         []Standing `json:"standings,omitempty"`
}

// File is the journal document as stored on disk.
type File struct {
	SessionStart time.Time `json:"session_start"`
	TargetName   string    `json:"target_name"`
	Summary      Summary   `json:"summary"`
	Records      []Record  `json:"records"`
}

// Writer appends records to one journal file. All file operations serialize
// on the writer's mutex; callers must not hold any campaign state lock while
// appending.
type Writer struct {
	mu     sync.Mutex
	path   string
	target string
	start  time.Time
	logger *slog.Logger
	cap    int
}

// NewWriter prepares a writer for path. The target name and this session's
// start time are stamped into the file on first write.
func NewWriter(path, target string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		path:   path,
		target: target,
		start:  time.Now(),
		logger: logger,
		cap:    maxRecords,
	}
}

// Path returns the journal file's location.
func (w *Writer) Path() string { return w.path }

// Append folds one record into the journal with a full read-modify-write
// cycle.
func (w *Writer) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.load()
	f.Summary = Reconcile(f.Summary, replay(f.Records), recordDelta(rec))
	f.Records = append(f.Records, rec)
	if len(f.Records) > w.cap {
		f.Records = f.Records[len(f.Records)-w.cap:]
	}
	f.TargetName = w.target
	if f.SessionStart.IsZero() {
		f.SessionStart = w.start
	}
	return w.store(f)
}

// load reads the journal, starting fresh when the file is missing or cannot
// be decoded.
func (w *Writer) load() File {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("journal unreadable, starting fresh", "path", w.path, "error", err)
		}
		return File{}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		w.logger.Warn("journal corrupt, starting fresh", "path", w.path, "error", err)
		return File{}
	}
	return f
}

// store rewrites the journal through a temp file in the same directory so a
// crash never leaves a half-written document behind.
func (w *Writer) store(f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".journal-*")
	if err != nil {
		return fmt.Errorf("failed to create journal temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close journal temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}

// Load reads a journal document, for offline inspection.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read journal: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to decode journal: %w", err)
	}
	return f, nil
}

// replay rebuilds a summary from the records still present.
func replay(records []Record) Summary {
	var s Summary
	for _, r := range records {
		d := recordDelta(r)
		s.TotalSubmitted += d.TotalSubmitted
		s.Standard += d.Standard
		s.InitialAccelerated += d.InitialAccelerated
		s.Accelerated += d.Accelerated
		s.SuperAccelerated += d.SuperAccelerated
		s.BackoffWaits += d.BackoffWaits
	}
	return s
}

// recordDelta is the summary contribution of one record. Tier and backoff
// tallies count the attempt either way; only a successful one raises the
// total.
func recordDelta(r Record) Summary {
	var d Summary
	if r.Success {
		d.TotalSubmitted = 1
	}
	switch pacing.Tier(r.Tier) {
	case pacing.TierSuperAccelerated:
		d.SuperAccelerated = 1
	case pacing.TierAccelerated:
		d.Accelerated = 1
	case pacing.TierInitialAccelerated:
		d.InitialAccelerated = 1
	default:
		d.Standard = 1
	}
	if r.BackoffActive {
		d.BackoffWaits = 1
	}
	return d
}

// Reconcile merges what the stored summary claims (existing), what the
// present records account for (replayed), and the new record's contribution
// (delta). Any excess the stored summary holds beyond the replay is history
// from pruned records and is preserved as a per-field offset; a replay that
// exceeds the stored summary clamps the offset at zero rather than shrinking
// the totals.
func Reconcile(existing, replayed, delta Summary) Summary {
	off := func(e, r uint64) uint64 {
		if e > r {
			return e - r
		}
		return 0
	}
	return Summary{
		TotalSubmitted:     off(existing.TotalSubmitted, replayed.TotalSubmitted) + replayed.TotalSubmitted + delta.TotalSubmitted,
		Standard:           off(existing.Standard, replayed.Standard) + replayed.Standard + delta.Standard,
		InitialAccelerated: off(existing.InitialAccelerated, replayed.InitialAccelerated) + replayed.InitialAccelerated + delta.InitialAccelerated,
		Accelerated:        off(existing.Accelerated, replayed.Accelerated) + replayed.Accelerated + delta.Accelerated,
		SuperAccelerated:   off(existing.SuperAccelerated, replayed.SuperAccelerated) + replayed.SuperAccelerated + delta.SuperAccelerated,
		BackoffWaits:       off(existing.BackoffWaits, replayed.BackoffWaits) + replayed.BackoffWaits + delta.BackoffWaits,
	}
}
