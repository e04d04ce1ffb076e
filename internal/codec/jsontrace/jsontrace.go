// Package jsontrace reads and writes traces as one JSON array of event
// envelopes. It has no header and is never detected from content.
package jsontrace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"codetrace/internal/codec/wire"
	"codetrace/internal/trace"
)

var ErrTrailingData = errors.New("jsontrace: trailing data after event list")

// Encode writes events as a JSON array followed by a newline.
func Encode(w io.Writer, events []trace.Event) error {
	envs, err := wire.FromEvents(events)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envs); err != nil {
		return fmt.Errorf("jsontrace: encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("jsontrace: flush: %w", err)
	}
	return nil
}

// Decode reads one JSON array of envelopes.
func Decode(r io.Reader) ([]trace.Event, error) {
	dec := json.NewDecoder(r)
	var envs []wire.Event
	if err := dec.Decode(&envs); err != nil {
		return nil, fmt.Errorf("jsontrace: decode: %w", err)
	}
	if envs == nil {
		return nil, fmt.Errorf("jsontrace: decode: expected an array")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return wire.ToEvents(envs)
}
