package traceio

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"codetrace/internal/codec/cborzstd"
	"codetrace/internal/codec/header"
	"codetrace/internal/codec/jsontrace"
	"codetrace/internal/codec/packed"
	"codetrace/internal/trace"
)

// Reader loads a complete event list from a file.
type Reader interface {
	Load(path string) ([]trace.Event, error)
}

// NewReader returns the reader for format. Both binary formats share one
// reader that dispatches on the file header, so a V0 file is readable
// when FormatBinary is requested and vice versa.
func NewReader(format Format, opts ...Option) (Reader, error) {
	o := buildOptions(opts)
	switch format {
	case FormatJSON:
		return &JSONReader{log: o.logger}, nil
	case FormatBinaryV0, FormatBinary:
		return &BinaryReader{log: o.logger}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// Load reads path with the reader for format.
func Load(path string, format Format, opts ...Option) ([]trace.Event, error) {
	r, err := NewReader(format, opts...)
	if err != nil {
		return nil, err
	}
	return r.Load(path)
}

// JSONReader loads a JSON trace_events file.
type JSONReader struct {
	log *zap.Logger
}

func (r *JSONReader) Load(path string) ([]trace.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("traceio: open %s: %w", path, err)
	}
	defer f.Close()
	events, err := jsontrace.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.Debug("trace loaded", zap.String("path", path), zap.Stringer("format", FormatJSON), zap.Int("events", len(events)))
	return events, nil
}

// BinaryReader loads a binary trace of either version, chosen by its
// header.
type BinaryReader struct {
	log *zap.Logger
}

func (r *BinaryReader) Load(path string) ([]trace.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("traceio: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("traceio: stat %s: %w", path, err)
	}
	size := info.Size()

	format, err := DetectFormat(io.NewSectionReader(f, 0, header.Size))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var events []trace.Event
	switch format {
	case FormatBinaryV0:
		events, err = packed.Decode(io.NewSectionReader(f, 0, size))
	case FormatBinary:
		events, err = cborzstd.Decode(f, size)
	case FormatJSON:
		err = fmt.Errorf("%w: JSON is never detected", ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.Debug("trace loaded", zap.String("path", path), zap.Stringer("format", format), zap.Int("events", len(events)))
	return events, nil
}
