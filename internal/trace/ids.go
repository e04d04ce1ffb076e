package trace

import (
	"fmt"

	"fortio.org/safecast"
)

// PathID indexes the ordered path registry of a trace.
type PathID uint64

// FunctionID indexes the ordered function registry of a trace.
type FunctionID uint64

// VariableID identifies an interned variable name.
type VariableID uint64

// TypeID identifies an interned type record.
type TypeID uint64

// ThreadID identifies a thread of the traced program.
type ThreadID uint64

// Place addresses a mutable storage cell independently of any value.
type Place int64

// Line is a 1-based source line number.
type Line int64

const (
	// NoneTypeID is reserved for the None type registered by Recorder.Start.
	NoneTypeID TypeID = 0
	// TopLevelFunctionID is reserved for the implicit top-level function.
	TopLevelFunctionID FunctionID = 0
	// TopLevelFunctionName is the name of the implicit top-level function.
	TopLevelFunctionName = "<toplevel>"
)

// None is the canonical None value of NoneTypeID.
var None ValueRecord = NoneValue{TypeID: NoneTypeID}

// NextID converts a table length into the next dense identifier.
// It panics if the length cannot be represented, which only happens when
// a table outgrows the address space.
func NextID[ID ~uint64](tableLen int) ID {
	n, err := safecast.Conv[uint64](tableLen)
	if err != nil {
		panic(fmt.Errorf("trace: table length overflow: %w", err))
	}
	return ID(n)
}
