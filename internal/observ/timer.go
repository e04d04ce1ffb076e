// Package observ measures the phases of a CLI command (load, encode,
// write) for --timings.
package observ

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Phase is one measured step. Events is the number of trace events the
// step handled, zero when not applicable.
type Phase struct {
	Name   string
	Start  time.Time
	Dur    time.Duration
	Events int
}

// Timer records phases in the order they were started.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 4), now: time.Now}
}

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: t.now()})
	return len(t.phases) - 1
}

// End closes the phase at idx. Unknown indexes are ignored.
func (t *Timer) End(idx, events int) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = t.now().Sub(p.Start)
	p.Events = events
}

// Track runs fn as a phase. fn reports the number of events it handled.
func (t *Timer) Track(name string, fn func() (int, error)) error {
	idx := t.Begin(name)
	n, err := fn()
	t.End(idx, n)
	return err
}

func (t *Timer) Phases() []Phase {
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
	}
	return total
}

// Summary renders one line per phase and a total line.
func (t *Timer) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range t.phases {
		fmt.Fprintf(&sb, "  %-12s %9.2f ms", p.Name, toMillis(p.Dur))
		if p.Events > 0 {
			fmt.Fprintf(&sb, "  %d events", p.Events)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-12s %9.2f ms\n", "total", toMillis(t.Total()))
	return sb.String()
}

// Log emits one debug entry per phase.
func (t *Timer) Log(logger *zap.Logger) {
	for _, p := range t.phases {
		logger.Debug("phase finished",
			zap.String("phase", p.Name),
			zap.Duration("duration", p.Dur),
			zap.Int("events", p.Events))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
