// Package packed implements the legacy fixed-schema binary trace format
// (header version 0).
//
// After the 8-byte header the file holds one msgpack array with every
// event. Each event and each value is itself an array whose first element
// is a union tag; the remaining elements follow a fixed per-tag layout.
// Identifiers are one-element wrapper arrays holding a signed 64-bit
// integer. msgpack's integer family stores small numbers in fewer bytes,
// so zero and small fields stay compact.
package packed

type eventTag uint8

const (
	tagPath eventTag = iota
	tagVariableName
	tagVariable
	tagType
	tagValue
	tagFunction
	tagStep
	tagCall
	tagReturn
	tagEvent
	tagAsm
	tagBindVariable
	tagAssignment
	tagDropVariables
	tagCompoundValue
	tagCellValue
	tagAssignCompoundItem
	tagAssignCell
	tagVariableCell
	tagDropVariable
	tagThreadStart
	tagThreadExit
	tagThreadSwitch
	tagDropLastStep
)

// The schema predates Char; there is no tag for it.
type valueTag uint8

const (
	tagInt valueTag = iota
	tagFloat
	tagBool
	tagString
	tagSequence
	tagTuple
	tagStruct
	tagVariant
	tagReference
	tagRaw
	tagError
	tagNone
	tagCell
	tagBigInt
)

type infoTag uint8

const (
	tagNoInfo infoTag = iota
	tagStructInfo
	tagPointerInfo
)

type rvalueTag uint8

const (
	tagSimple rvalueTag = iota
	tagCompound
)

// maxPrealloc bounds slice preallocation from untrusted array lengths.
const maxPrealloc = 1024

func preallocLen(n int) int {
	return min(n, maxPrealloc)
}
