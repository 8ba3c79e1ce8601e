// Package profiling provides opt-in timing spans and pprof hooks for the
// inboxd CLI.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	depth    int
	start    time.Time
	duration time.Duration
	rec      *Recorder
}

func (s *span) Stop() {
	s.rec.end(s, time.Since(s.start))
}

// Recorder collects nested spans. Spans started while another is open
// become its children; Recorder expects spans to be stopped in LIFO order.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	start   time.Time
	spans   []*span
	open    int
}

var defaultRecorder = &Recorder{}

// Enable turns on the default recorder.
func Enable() { defaultRecorder.Enable() }

// Start begins a span on the default recorder. It is a no-op until Enable.
func Start(name string) Stopper { return defaultRecorder.Start(name) }

// Summarize writes the default recorder's spans to w.
func Summarize(w io.Writer) { defaultRecorder.Summarize(w) }

func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		r.enabled = true
		r.start = time.Now()
	}
}

func (r *Recorder) Start(name string) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noopStopper{}
	}
	s := &span{name: name, depth: r.open, start: time.Now(), rec: r}
	r.spans = append(r.spans, s)
	r.open++
	return s
}

func (r *Recorder) end(s *span, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.duration = d
	if r.open > 0 {
		r.open--
	}
}

// Summarize prints each span indented under its parent, with its share
// of the time since Enable.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}

	total := time.Since(r.start)
	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, s := range r.spans {
		pct := 0.0
		if total > 0 {
			pct = float64(s.duration) / float64(total) * 100
		}
		fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n",
			strings.Repeat("  ", s.depth+1), s.name, s.duration.Round(100*time.Microsecond), pct)
	}
	fmt.Fprintln(w, "--------------------")
}

type noopStopper struct{}

func (noopStopper) Stop() {}
