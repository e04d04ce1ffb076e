package trace

import "fmt"

// TypeKind classifies a TypeRecord. The numeric values are part of every
// binary format and must never be reordered.
type TypeKind uint8

const (
	TypeKindSeq TypeKind = iota
	TypeKindSet
	TypeKindHashSet
	TypeKindOrderedSet
	TypeKindArray
	TypeKindVarargs
	TypeKindStruct
	TypeKindInt
	TypeKindFloat
	TypeKindString
	TypeKindCString
	TypeKindChar
	TypeKindBool
	TypeKindLiteral
	TypeKindRef
	TypeKindRecursion
	TypeKindRaw
	TypeKindEnum
	TypeKindEnum16
	TypeKindEnum32
	TypeKindC
	TypeKindTableKind
	TypeKindUnion
	TypeKindPointer
	TypeKindError
	TypeKindFunctionKind
	TypeKindTypeValue
	TypeKindTuple
	TypeKindVariant
	TypeKindHTML
	TypeKindNone
	TypeKindNonExpanded
	TypeKindAny
	TypeKindSlice

	typeKindCount
)

var typeKindNames = [...]string{
	TypeKindSeq:          "Seq",
	TypeKindSet:          "Set",
	TypeKindHashSet:      "HashSet",
	TypeKindOrderedSet:   "OrderedSet",
	TypeKindArray:        "Array",
	TypeKindVarargs:      "Varargs",
	TypeKindStruct:       "Struct",
	TypeKindInt:          "Int",
	TypeKindFloat:        "Float",
	TypeKindString:       "String",
	TypeKindCString:      "CString",
	TypeKindChar:         "Char",
	TypeKindBool:         "Bool",
	TypeKindLiteral:      "Literal",
	TypeKindRef:          "Ref",
	TypeKindRecursion:    "Recursion",
	TypeKindRaw:          "Raw",
	TypeKindEnum:         "Enum",
	TypeKindEnum16:       "Enum16",
	TypeKindEnum32:       "Enum32",
	TypeKindC:            "C",
	TypeKindTableKind:    "TableKind",
	TypeKindUnion:        "Union",
	TypeKindPointer:      "Pointer",
	TypeKindError:        "Error",
	TypeKindFunctionKind: "FunctionKind",
	TypeKindTypeValue:    "TypeValue",
	TypeKindTuple:        "Tuple",
	TypeKindVariant:      "Variant",
	TypeKindHTML:         "Html",
	TypeKindNone:         "None",
	TypeKindNonExpanded:  "NonExpanded",
	TypeKindAny:          "Any",
	TypeKindSlice:        "Slice",
}

// Valid reports whether k is one of the known kinds.
func (k TypeKind) Valid() bool { return k < typeKindCount }

// String returns the CodeTracer name of the kind.
func (k TypeKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
	return typeKindNames[k]
}

// EventLogKind classifies a free-form instrumentation event.
type EventLogKind uint8

const (
	EventLogWrite EventLogKind = iota
	EventLogWriteFile
	EventLogWriteOther
	EventLogRead
	EventLogReadFile
	EventLogReadOther
	EventLogReadDir
	EventLogOpenDir
	EventLogCloseDir
	EventLogSocket
	EventLogOpen
	EventLogError
	EventLogTraceLogEvent
	EventLogEvmEvent

	eventLogKindCount
)

var eventLogKindNames = [...]string{
	EventLogWrite:         "Write",
	EventLogWriteFile:     "WriteFile",
	EventLogWriteOther:    "WriteOther",
	EventLogRead:          "Read",
	EventLogReadFile:      "ReadFile",
	EventLogReadOther:     "ReadOther",
	EventLogReadDir:       "ReadDir",
	EventLogOpenDir:       "OpenDir",
	EventLogCloseDir:      "CloseDir",
	EventLogSocket:        "Socket",
	EventLogOpen:          "Open",
	EventLogError:         "Error",
	EventLogTraceLogEvent: "TraceLogEvent",
	EventLogEvmEvent:      "EvmEvent",
}

// Valid reports whether k is one of the known kinds.
func (k EventLogKind) Valid() bool { return k < eventLogKindCount }

func (k EventLogKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("EventLogKind(%d)", uint8(k))
	}
	return eventLogKindNames[k]
}

// PassBy tells whether an assignment copied the value or shared it.
type PassBy uint8

const (
	PassByValue PassBy = iota
	PassByReference
)

// Valid reports whether p is PassByValue or PassByReference.
func (p PassBy) Valid() bool { return p <= PassByReference }

func (p PassBy) String() string {
	switch p {
	case PassByValue:
		return "Value"
	case PassByReference:
		return "Reference"
	default:
		return fmt.Sprintf("PassBy(%d)", uint8(p))
	}
}

// ParsePassBy is the inverse of PassBy.String.
func ParsePassBy(s string) (PassBy, error) {
	switch s {
	case "Value":
		return PassByValue, nil
	case "Reference":
		return PassByReference, nil
	default:
		return PassByValue, fmt.Errorf("invalid pass-by %q (expected: Value|Reference)", s)
	}
}
