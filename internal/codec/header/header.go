// Package header implements the 8-byte magic header that prefixes every
// binary trace file: five magic bytes, a version byte and two reserved
// zero bytes.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Size is the length of the header in bytes.
const Size = 8

// Magic identifies a binary trace file.
var Magic = [5]byte{0xC0, 0xDE, 0x72, 0xAC, 0xE2}

// Version is the binary format version stored in byte 5 of the header.
type Version uint8

const (
	V0 Version = 0x00
	V1 Version = 0x01
)

func (v Version) String() string {
	switch v {
	case V0:
		return "v0"
	case V1:
		return "v1"
	default:
		return fmt.Sprintf("v%d", uint8(v))
	}
}

// Supported reports whether v is a version this package recognizes.
func (v Version) Supported() bool {
	return v == V0 || v == V1
}

var (
	ErrInvalidHeader      = errors.New("invalid trace header")
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrInvalidHeader)
	ErrTruncated          = errors.New("trace header truncated")
)

// Bytes returns the header for v.
func Bytes(v Version) [Size]byte {
	var h [Size]byte
	copy(h[:], Magic[:])
	h[5] = byte(v)
	return h
}

// Write writes the header for v to w.
func Write(w io.Writer, v Version) error {
	h := Bytes(v)
	if _, err := w.Write(h[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Parse validates the first Size bytes of b and returns the version.
func Parse(b []byte) (Version, error) {
	if len(b) < Size {
		return 0, ErrTruncated
	}
	if !bytes.Equal(b[:len(Magic)], Magic[:]) {
		return 0, fmt.Errorf("%w: bad magic % x", ErrInvalidHeader, b[:len(Magic)])
	}
	if b[6] != 0 || b[7] != 0 {
		return 0, fmt.Errorf("%w: reserved bytes % x are not zero", ErrInvalidHeader, b[6:8])
	}
	v := Version(b[5])
	if !v.Supported() {
		return v, fmt.Errorf("%w %d", ErrUnsupportedVersion, b[5])
	}
	return v, nil
}

// Read consumes exactly Size bytes from r and parses them.
func Read(r io.Reader) (Version, error) {
	var h [Size]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncated
		}
		return 0, fmt.Errorf("read header: %w", err)
	}
	return Parse(h[:])
}

// Expect reads the header from r and fails unless it carries version want.
func Expect(r io.Reader, want Version) error {
	got, err := Read(r)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %s, want %s", ErrUnsupportedVersion, got, want)
	}
	return nil
}
