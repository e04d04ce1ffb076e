// Package cborzstd implements the streaming binary trace format (header
// version 1): the header followed by a zstd stream of concatenated CBOR
// items, one per event, with no outer framing.
package cborzstd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"codetrace/internal/codec/header"
	"codetrace/internal/codec/wire"
	"codetrace/internal/trace"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cborzstd: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	// Real traces nest deeply and hold long sequences; lift the limits
	// to their maxima.
	dm, err := cbor.DecOptions{
		MaxNestedLevels:  65535,
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cborzstd: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

var ErrClosed = errors.New("cborzstd: encoder closed")

// Encoder appends events to a V1 stream. Close must be called to
// terminate the compressed stream; without it the output is unreadable.
type Encoder struct {
	zw     *zstd.Encoder
	enc    *cbor.Encoder
	closed bool
}

// NewEncoder writes the V1 header to w and starts the compressor.
func NewEncoder(w io.Writer) (*Encoder, error) {
	if err := header.Write(w, header.V1); err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("cborzstd: start compressor: %w", err)
	}
	return &Encoder{zw: zw, enc: encMode.NewEncoder(zw)}, nil
}

// Encode appends one event.
func (e *Encoder) Encode(ev trace.Event) error {
	if e.closed {
		return ErrClosed
	}
	env, err := wire.FromEvent(ev)
	if err != nil {
		return err
	}
	if err := e.enc.Encode(env); err != nil {
		return fmt.Errorf("cborzstd: encode %s: %w", trace.EventName(ev), err)
	}
	return nil
}

// Flush pushes buffered data through the compressor without ending the
// stream.
func (e *Encoder) Flush() error {
	if e.closed {
		return ErrClosed
	}
	if err := e.zw.Flush(); err != nil {
		return fmt.Errorf("cborzstd: flush: %w", err)
	}
	return nil
}

// Close flushes and terminates the compressed stream. It does not close
// the underlying writer. Calling Close again is a no-op.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.zw.Close(); err != nil {
		return fmt.Errorf("cborzstd: finish stream: %w", err)
	}
	return nil
}

// Encode writes a complete V1 stream holding events.
func Encode(w io.Writer, events []trace.Event) error {
	enc, err := NewEncoder(w)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			_ = enc.Close()
			return err
		}
	}
	return enc.Close()
}

// Decode reads a V1 stream of size bytes from r. The compressed region
// starts right after the header.
func Decode(r io.ReaderAt, size int64) ([]trace.Event, error) {
	if size < header.Size {
		return nil, header.ErrTruncated
	}
	if err := header.Expect(io.NewSectionReader(r, 0, header.Size), header.V1); err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(io.NewSectionReader(r, header.Size, size-header.Size), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("cborzstd: start decompressor: %w", err)
	}
	defer zr.Close()

	dec := decMode.NewDecoder(zr)
	var events []trace.Event
	for i := 0; ; i++ {
		var env wire.Event
		if err := dec.Decode(&env); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("cborzstd: event %d: %w", i, err)
		}
		ev, err := wire.ToEvent(env)
		if err != nil {
			return nil, fmt.Errorf("cborzstd: event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
