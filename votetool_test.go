package votetool

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/engine"
	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/pacing"
)

// pageSubmitter serves a fixed result page and counts submissions.
type pageSubmitter struct {
	page string

	mu      sync.Mutex
	submits int
}

func (s *pageSubmitter) Submit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.submits++
	s.mu.Unlock()
	return true, nil
}

func (s *pageSubmitter) ResultPage(ctx context.Context) (string, error) {
	return s.page, nil
}

func (s *pageSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

const leadingPage = `Cutler Whitaker - 40.0%
Dylan Papushak - 25.0%
Total: 1000 votes`

func newTestCampaign(t *testing.T, sub Submitter, extra ...Option) *Campaign {
	t.Helper()
	dir := t.TempDir()
	opts := []Option{
		WithTarget("Cutler Whitaker"),
		WithSubmitter(sub),
		WithJournalPath(filepath.Join(dir, "journal.json")),
		WithVerificationPath(filepath.Join(dir, "verify.json")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	c, err := New(append(opts, extra...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestStartDispatchesCallbacks(t *testing.T) {
	sub := &pageSubmitter{page: leadingPage}
	statusCh := make(chan StatusUpdate, 16)
	outcomeCh := make(chan Outcome, 16)
	verifyCh := make(chan VerificationReport, 16)

	c := newTestCampaign(t, sub,
		WithStatusCallback(func(u StatusUpdate) { statusCh <- u }),
		WithOutcomeCallback(func(o Outcome) { outcomeCh <- o }),
		WithVerificationCallback(func(r VerificationReport) { verifyCh <- r }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	var outcome Outcome
	select {
	case outcome = <-outcomeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome callback within 5s")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}

	if outcome.Attempt != 1 {
		t.Errorf("first outcome attempt = %d, want 1", outcome.Attempt)
	}
	if !outcome.Success {
		t.Error("first outcome success = false, want true")
	}
	if outcome.TargetFirst == nil || !*outcome.TargetFirst {
		t.Errorf("first outcome TargetFirst = %v, want true", outcome.TargetFirst)
	}
	if outcome.TargetPercentage == nil || *outcome.TargetPercentage != 40.0 {
		t.Errorf("first outcome TargetPercentage = %v, want 40.0", outcome.TargetPercentage)
	}
	if outcome.LeadMargin == nil || *outcome.LeadMargin != 15.0 {
		t.Errorf("first outcome LeadMargin = %v, want 15.0", outcome.LeadMargin)
	}

	select {
	case update := <-statusCh:
		if update.Worker == "" {
			t.Error("status update has an empty worker id")
		}
	default:
		t.Error("no status updates were dispatched")
	}

	// the primary samples on its first attempt
	select {
	case report := <-verifyCh:
		if report.TargetVotes != 400 {
			t.Errorf("verification TargetVotes = %d, want 400", report.TargetVotes)
		}
	default:
		t.Error("no verification report was dispatched")
	}

	if sub.count() == 0 {
		t.Error("submitter was never invoked")
	}
}

func TestStartRecoversCallbackPanics(t *testing.T) {
	sub := &pageSubmitter{page: leadingPage}
	outcomeCh := make(chan Outcome, 16)

	c := newTestCampaign(t, sub,
		WithOutcomeCallback(func(Outcome) { panic("callback bug") }),
		WithOutcomeCallback(func(o Outcome) { outcomeCh <- o }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	select {
	case <-outcomeCh:
		// the panicking callback did not take down dispatch
	case <-time.After(5 * time.Second):
		t.Fatal("second callback never ran after the first panicked")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestStartWithCancelledContextReturnsImmediately(t *testing.T) {
	c := newTestCampaign(t, &pageSubmitter{page: leadingPage})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
}

func TestEngineOutcomeConversionWithoutStandings(t *testing.T) {
	// unobserved outcomes carry no standings-derived fields
	out := engineOutcomeToPublic(engine.Outcome{
		Sequence: 3,
		Worker:   "primary",
		Time:     time.Now(),
		Success:  true,
		Observed: false,
		Tier:     pacing.TierStandard,
	})
	if out.Attempt != 3 || !out.Success {
		t.Errorf("conversion dropped base fields: %+v", out)
	}
	if out.TargetFirst != nil || out.TargetRank != nil || out.TargetPercentage != nil || out.LeadMargin != nil {
		t.Error("unobserved outcome carries standings-derived pointers")
	}
	if len(out.Standings) != 0 {
		t.Errorf("unobserved outcome Standings len = %d, want 0", len(out.Standings))
	}
}
