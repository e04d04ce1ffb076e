package phasetrace

import (
	"io"
	"os"
	"sync"

	"go.uber.org/multierr"
)

// StreamTracer writes each event to w as it is emitted. The first write
// error is kept and returned by Flush and Close; later events are dropped.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	first  bool
	closed bool
	err    error
}

// NewStreamTracer starts a stream on w. For FormatChrome it writes the
// opening of the event array.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	t := &StreamTracer{w: w, level: level, format: format, first: true}
	if format == FormatChrome {
		t.write([]byte("{\"traceEvents\":[\n"))
	}
	return t
}

func (t *StreamTracer) write(p []byte) {
	if t.err != nil {
		return
	}
	if _, err := t.w.Write(p); err != nil {
		t.err = err
	}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	ev.Seq = NextSeq()
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.format == FormatChrome {
		if !t.first {
			t.write([]byte(",\n"))
		}
		t.first = false
	}
	t.write(data)
}

// Flush forwards to w when it has a Flush method.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

func (t *StreamTracer) flush() error {
	if t.err != nil {
		return t.err
	}
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close ends the stream and closes w if it is a file other than the
// process's standard streams. A second Close is a no-op.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.format == FormatChrome {
		t.write([]byte("\n]}\n"))
	}
	err := t.flush()
	if c, ok := t.w.(io.Closer); ok && t.w != os.Stderr && t.w != os.Stdout {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
