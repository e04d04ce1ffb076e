// Package traceio selects a codec for a trace file and exposes the common
// writer and reader contracts over the JSON, V0 and V1 encodings.
package traceio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"codetrace/internal/codec/header"
)

// Format is a logical trace file format.
type Format uint8

const (
	FormatJSON Format = iota
	FormatBinaryV0
	FormatBinary
)

var ErrUnknownFormat = errors.New("traceio: unknown format")

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatBinaryV0:
		return "binary-v0"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Set and Type let a Format be used as a command line flag.
func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f *Format) Type() string { return "format" }

// ParseFormat accepts "json", "binary" (alias "bin", "v1") and
// "binary-v0" (alias "v0").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "binary", "bin", "v1", "binary-v1":
		return FormatBinary, nil
	case "binary-v0", "v0", "capnp":
		return FormatBinaryV0, nil
	default:
		return 0, fmt.Errorf("%w %q (want json, binary or binary-v0)", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks a format by extension: .json is JSON, .bin is the
// current binary format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".bin":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("%w: cannot infer format of %q from its extension", ErrUnknownFormat, path)
	}
}

// DetectFormat reads the 8-byte header from r. JSON has no header and is
// never detected.
func DetectFormat(r io.Reader) (Format, error) {
	v, err := header.Read(r)
	if err != nil {
		return 0, fmt.Errorf("traceio: invalid or incompatible file: %w", err)
	}
	switch v {
	case header.V0:
		return FormatBinaryV0, nil
	case header.V1:
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("traceio: invalid or incompatible file: %w", header.ErrUnsupportedVersion)
	}
}

// DetectFile detects the binary format of the file at path.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("traceio: open %s: %w", path, err)
	}
	defer f.Close()
	format, err := DetectFormat(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return format, nil
}
