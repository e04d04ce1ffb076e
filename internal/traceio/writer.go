package traceio

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"codetrace/internal/codec/cborzstd"
	"codetrace/internal/codec/jsontrace"
	"codetrace/internal/codec/packed"
	"codetrace/internal/trace"
)

// Writer is the contract shared by all output strategies. Begin opens the
// output, Add and Append accept events in replay order, and Finish
// performs the format's finalization. Begin and Finish must each be
// called exactly once; violating the call order panics.
type Writer interface {
	Begin(path string) error
	Add(ev trace.Event)
	Append(events []trace.Event)
	Finish() error
	// Err reports the first output failure seen so far.
	Err() error
}

// NewWriter returns the strategy for format: a BufferedWriter for JSON and
// V0, which need the complete list up front, or a StreamingWriter for V1.
func NewWriter(format Format, opts ...Option) (Writer, error) {
	o := buildOptions(opts)
	switch format {
	case FormatJSON, FormatBinaryV0:
		return &BufferedWriter{format: format, log: o.logger}, nil
	case FormatBinary:
		return &StreamingWriter{log: o.logger}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// BufferedWriter keeps every event in memory and serializes the whole
// list in Finish. Events may be added before Begin.
type BufferedWriter struct {
	format   Format
	log      *zap.Logger
	path     string
	events   []trace.Event
	begun    bool
	finished bool
	err      error
}

var _ Writer = (*BufferedWriter)(nil)

// Begin records the output path. Nothing is created until Finish.
func (w *BufferedWriter) Begin(path string) error {
	if w.begun {
		panic("traceio: Begin called twice")
	}
	w.begun = true
	w.path = path
	return nil
}

// Add buffers ev.
func (w *BufferedWriter) Add(ev trace.Event) {
	if w.finished {
		panic("traceio: Add after Finish")
	}
	w.events = append(w.events, ev)
}

func (w *BufferedWriter) Append(events []trace.Event) {
	if w.finished {
		panic("traceio: Append after Finish")
	}
	w.events = append(w.events, events...)
}

// Events returns the events collected so far.
func (w *BufferedWriter) Events() []trace.Event {
	return w.events
}

func (w *BufferedWriter) Err() error {
	return w.err
}

// Finish encodes the buffered events to the path given to Begin. Encoding
// errors, including text the format cannot carry, are returned and kept
// for Err.
func (w *BufferedWriter) Finish() (err error) {
	if !w.begun {
		panic("traceio: Finish called before Begin")
	}
	if w.finished {
		panic("traceio: Finish called twice")
	}
	w.finished = true
	start := time.Now()
	defer func() {
		w.err = err
		w.logFinish(start, err)
	}()

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("traceio: create %s: %w", w.path, err)
	}
	switch w.format {
	case FormatJSON:
		err = jsontrace.Encode(f, w.events)
	case FormatBinaryV0:
		err = packed.Encode(f, w.events)
	}
	err = multierr.Append(err, f.Close())
	if err != nil {
		return fmt.Errorf("traceio: write %s: %w", w.path, err)
	}
	return nil
}

func (w *BufferedWriter) logFinish(start time.Time, err error) {
	fields := []zap.Field{
		zap.String("path", w.path),
		zap.Stringer("format", w.format),
		zap.Int("events", len(w.events)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		w.log.Error("trace write failed", append(fields, zap.Error(err))...)
		return
	}
	w.log.Debug("trace written", fields...)
}

// StreamingWriter encodes each event as it arrives. It holds the output
// file and one compressor between Begin and Finish. The first write
// failure is kept; later events are dropped and Finish returns it.
type StreamingWriter struct {
	log      *zap.Logger
	path     string
	file     *os.File
	buf      *bufio.Writer
	enc      *cborzstd.Encoder
	count    int
	begun    bool
	finished bool
	err      error
}

var _ Writer = (*StreamingWriter)(nil)

// Begin creates path and writes the V1 header.
func (w *StreamingWriter) Begin(path string) error {
	if w.begun {
		panic("traceio: Begin called twice")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("traceio: create %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	enc, err := cborzstd.NewEncoder(buf)
	if err != nil {
		return multierr.Append(fmt.Errorf("traceio: begin %s: %w", path, err), f.Close())
	}
	w.begun = true
	w.path = path
	w.file = f
	w.buf = buf
	w.enc = enc
	w.log.Debug("trace stream opened", zap.String("path", path))
	return nil
}

// Add encodes ev. A failed event sets the sticky error and is not
// written.
func (w *StreamingWriter) Add(ev trace.Event) {
	if !w.begun {
		panic("traceio: Add before Begin on a streaming writer")
	}
	if w.finished {
		panic("traceio: Add after Finish")
	}
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(ev); err != nil {
		w.err = fmt.Errorf("traceio: write %s: %w", w.path, err)
		w.log.Error("trace event dropped", zap.String("path", w.path), zap.Int("index", w.count), zap.Error(err))
		return
	}
	w.count++
}

func (w *StreamingWriter) Append(events []trace.Event) {
	for _, ev := range events {
		w.Add(ev)
	}
}

func (w *StreamingWriter) Err() error {
	return w.err
}

// Finish closes the compressed stream and the file, returning the sticky
// error if any event failed.
func (w *StreamingWriter) Finish() error {
	if !w.begun {
		panic("traceio: Finish called before Begin")
	}
	if w.finished {
		panic("traceio: Finish called twice")
	}
	w.finished = true
	err := multierr.Combine(w.err, w.enc.Close(), w.buf.Flush(), w.file.Close())
	if err != nil {
		if w.err == nil {
			err = fmt.Errorf("traceio: finish %s: %w", w.path, err)
		}
		w.err = err
		w.log.Error("trace stream failed", zap.String("path", w.path), zap.Int("events", w.count), zap.Error(err))
		return err
	}
	w.log.Debug("trace stream finished", zap.String("path", w.path), zap.Int("events", w.count))
	return nil
}
