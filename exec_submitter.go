package votetool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultExecTimeout = 2 * time.Minute

// ExecSubmitter casts votes by running an external command, the escape hatch
// for polls that need real page automation. The command handles the page
// end-to-end and writes the captured result page to an agreed file; exit
// status 0 means a result page was obtained.
//
// Runs are serialized on an internal mutex so concurrent workers never share
// a browser profile or clobber the side-channel file mid-write.
type ExecSubmitter struct {
	argv       []string
	resultPath string
	timeout    time.Duration

	mu sync.Mutex
}

// execSubmitterConfig holds mutable state during submitter construction.
type execSubmitterConfig struct {
	timeout time.Duration
}

// ExecOption configures an [ExecSubmitter] during construction.
type ExecOption func(*execSubmitterConfig) error

// ExecTimeout bounds a single command run. Defaults to 2 minutes.
//
// Returns an error if the duration is not positive.
func ExecTimeout(d time.Duration) ExecOption {
	return func(cfg *execSubmitterConfig) error {
		if d <= 0 {
			return errors.New("exec timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// NewExecSubmitter creates an [ExecSubmitter] running argv per vote, reading
// the result page the command leaves at resultPage.
//
// Returns an error if argv is empty or resultPage is blank.
//
// Example:
//
//	sub, err := votetool.NewExecSubmitter(
//	    []string{"./submit_vote.sh", "--headless"},
//	    "vote_result.html",
//	    votetool.ExecTimeout(90*time.Second),
//	)
func NewExecSubmitter(argv []string, resultPage string, opts ...ExecOption) (*ExecSubmitter, error) {
	if len(argv) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	if resultPage == "" {
		return nil, errors.New("result page path cannot be empty")
	}

	cfg := &execSubmitterConfig{timeout: defaultExecTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return &ExecSubmitter{
		argv:       append([]string(nil), argv...),
		resultPath: resultPage,
		timeout:    cfg.timeout,
	}, nil
}

// Submit runs the command once. A zero exit status reports success; a
// non-zero exit is a failed attempt, not an error, so the campaign keeps
// its cadence.
func (s *ExecSubmitter) Submit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.argv[0], s.argv[1:]...)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("failed to run %s: %w", s.argv[0], err)
}

// ResultPage reads the side-channel file the command writes.
func (s *ExecSubmitter) ResultPage(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.resultPath)
	if err != nil {
		return "", fmt.Errorf("failed to read result page: %w", err)
	}
	return string(data), nil
}
