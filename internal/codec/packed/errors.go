package packed

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTag = errors.New("packed: unknown union tag")
	ErrMalformed  = errors.New("packed: malformed message")

	// ErrInvalidRune rejects a Char that is not a Unicode scalar value.
	// string(rune) would store U+FFFD instead.
	ErrInvalidRune = errors.New("packed: char is not a unicode scalar value")
)

// RangeError reports an identifier or number that does not fit the wire
// width of its field, in either direction.
type RangeError struct {
	Field string
	Err   error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("packed: %s out of range: %v", e.Field, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

func unknownTag(what string, tag uint8) error {
	return fmt.Errorf("%w %d for %s", ErrUnknownTag, tag, what)
}

func badArity(what string, got, want int) error {
	return fmt.Errorf("%w: %s has %d fields, want %d", ErrMalformed, what, got, want)
}
