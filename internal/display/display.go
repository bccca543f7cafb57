// Package display renders the live campaign view: one line per worker with a
// spinner, a summary line, the current standings, and a small ring of recent
// warnings.
//
// Two modes, chosen by the caller: ANSI repaint (cursor-up rewrite at a fixed
// cadence, for interactive terminals) and plain (append-only scrolling lines,
// for pipes and dumb terminals). Detection lives in [IsTerminal]; the
// renderer itself just does what it is told.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	repaintInterval = 250 * time.Millisecond
	warningsKept    = 5
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Worker states the renderer distinguishes. They mirror the feed's states as
// plain strings so this package stays free of engine types.
const (
	StateIdle       = "idle"
	StateProcessing = "processing"
	StateMessage    = "message"
)

type workerLine struct {
	state   string
	attempt uint64
	message string
}

// Renderer paints the campaign view. All methods are safe for concurrent use;
// in ANSI mode painting happens on the renderer's own ticker goroutine, in
// plain mode each update prints immediately.
type Renderer struct {
	out   io.Writer
	plain bool

	mu        sync.Mutex
	order     []string
	workers   map[string]*workerLine
	summary   string
	standings []string
	warnings  []string
	spin      int
	painted   int

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// IsTerminal reports whether f is an interactive terminal that can take ANSI
// repaints.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// New creates a renderer writing to out. Plain mode disables the repaint
// loop and prints updates as ordinary scrolling lines.
func New(out io.Writer, plain bool) *Renderer {
	return &Renderer{
		out:     out,
		plain:   plain,
		workers: make(map[string]*workerLine),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the repaint ticker. A no-op in plain mode and on repeat
// calls.
func (r *Renderer) Start() {
	r.startOnce.Do(func() {
		if r.plain {
			close(r.done)
			return
		}
		go r.loop()
	})
}

// Stop halts the repaint loop and paints one final frame. Safe to call more
// than once, and before Start.
func (r *Renderer) Stop() {
	r.startOnce.Do(func() { close(r.done) })
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	if !r.plain {
		r.mu.Lock()
		r.paintLocked()
		r.mu.Unlock()
	}
}

func (r *Renderer) loop() {
	defer close(r.done)
	ticker := time.NewTicker(repaintInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.spin++
			r.paintLocked()
			r.mu.Unlock()
		}
	}
}

// WorkerStatus records a worker's state transition. In plain mode idle
// transitions are skipped to keep the scroll readable.
func (r *Renderer) WorkerStatus(worker, state string, attempt uint64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, seen := r.workers[worker]
	if !seen {
		line = &workerLine{}
		r.workers[worker] = line
		r.order = append(r.order, worker)
	}
	line.state = state
	if attempt > 0 {
		line.attempt = attempt
	}
	line.message = message

	if r.plain && state != StateIdle {
		fmt.Fprintln(r.out, r.formatWorker(worker, line))
	}
}

// Summary replaces the headline line above the worker block.
func (r *Renderer) Summary(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = s
	if r.plain {
		fmt.Fprintln(r.out, s)
	}
}

// Standings replaces the standings pane with preformatted lines.
func (r *Renderer) Standings(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.standings = append(r.standings[:0], lines...)
	if r.plain {
		for _, l := range lines {
			fmt.Fprintln(r.out, "  "+l)
		}
	}
}

// Warn pushes a message onto the warning ring.
func (r *Renderer) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
	if len(r.warnings) > warningsKept {
		r.warnings = r.warnings[len(r.warnings)-warningsKept:]
	}
	if r.plain {
		fmt.Fprintln(r.out, "! "+msg)
	}
}

func (r *Renderer) formatWorker(worker string, line *workerLine) string {
	switch line.state {
	case StateProcessing:
		frame := spinnerFrames[r.spin%len(spinnerFrames)]
		return fmt.Sprintf("[%s] Submitting vote... %s  (attempt #%d)", worker, frame, line.attempt)
	case StateMessage:
		return fmt.Sprintf("[%s] %s", worker, line.message)
	default:
		if line.attempt > 0 {
			return fmt.Sprintf("[%s] Waiting  (after attempt #%d)", worker, line.attempt)
		}
		return fmt.Sprintf("[%s] Waiting", worker)
	}
}

// paintLocked rewrites the whole frame in place: cursor up over the previous
// frame, then each line cleared and reprinted. Caller holds r.mu.
func (r *Renderer) paintLocked() {
	var b strings.Builder
	if r.painted > 0 {
		fmt.Fprintf(&b, "\033[%dA", r.painted)
	}

	lines := 0
	emit := func(s string) {
		b.WriteString("\033[K")
		b.WriteString(s)
		b.WriteString("\n")
		lines++
	}

	if r.summary != "" {
		emit(r.summary)
	}
	for _, id := range r.order {
		emit(r.formatWorker(id, r.workers[id]))
	}
	if len(r.standings) > 0 {
		emit("Standings:")
		for _, l := range r.standings {
			emit("  " + l)
		}
	}
	for _, w := range r.warnings {
		emit("! " + w)
	}

	// pad when the frame shrank so stale lines never linger
	for lines < r.painted {
		emit("")
	}

	r.painted = lines
	fmt.Fprint(r.out, b.String())
}
