package trace

// ValueRecord is a recorded runtime value. Values nest: sequences, tuples,
// structs, variants and references own child values.
//
//sumtype:decl
type ValueRecord interface {
	isValueRecord()
}

// IntValue is a signed integer.
type IntValue struct {
	I      int64
	TypeID TypeID
}

type FloatValue struct {
	F      float64
	TypeID TypeID
}

type BoolValue struct {
	B      bool
	TypeID TypeID
}

// StringValue holds UTF-8 text. Invalid UTF-8 is rejected by the JSON
// and V1 encoders.
type StringValue struct {
	Text   string
	TypeID TypeID
}

// SequenceValue is an ordered collection; IsSlice marks a view into
// storage owned elsewhere.
type SequenceValue struct {
	Elements []ValueRecord
	IsSlice  bool
	TypeID   TypeID
}

// TupleValue is a fixed-size heterogeneous group.
type TupleValue struct {
	Elements []ValueRecord
	TypeID   TypeID
}

// StructValue holds field values by position; names live in the
// StructInfo of the referenced type.
type StructValue struct {
	FieldValues []ValueRecord
	TypeID      TypeID
}

// VariantValue is a tagged union member; Discriminator names the case.
type VariantValue struct {
	Discriminator string
	Contents      ValueRecord
	TypeID        TypeID
}

// ReferenceValue points at Dereferenced, which lives at Address.
type ReferenceValue struct {
	Dereferenced ValueRecord
	Address      uint64
	Mutable      bool
	TypeID       TypeID
}

// RawValue is an opaque textual rendering for values the producer could
// not describe structurally.
type RawValue struct {
	R      string
	TypeID TypeID
}

// ErrorValue stands in for a value the producer could not capture.
type ErrorValue struct {
	Msg    string
	TypeID TypeID
}

// NoneValue is the absent value. See None.
type NoneValue struct {
	TypeID TypeID
}

// CellValue refers to the storage cell at Place instead of owning a value.
type CellValue struct {
	Place Place
}

// BigIntValue is an arbitrary precision integer stored as sign and
// big-endian magnitude bytes.
type BigIntValue struct {
	B        []byte
	Negative bool
	TypeID   TypeID
}

// CharValue is one Unicode scalar value. Surrogates do not encode.
type CharValue struct {
	C      rune
	TypeID TypeID
}

func (IntValue) isValueRecord()       {}
func (FloatValue) isValueRecord()     {}
func (BoolValue) isValueRecord()      {}
func (StringValue) isValueRecord()    {}
func (SequenceValue) isValueRecord()  {}
func (TupleValue) isValueRecord()     {}
func (StructValue) isValueRecord()    {}
func (VariantValue) isValueRecord()   {}
func (ReferenceValue) isValueRecord() {}
func (RawValue) isValueRecord()       {}
func (ErrorValue) isValueRecord()     {}
func (NoneValue) isValueRecord()      {}
func (CellValue) isValueRecord()      {}
func (BigIntValue) isValueRecord()    {}
func (CharValue) isValueRecord()      {}

// ValueKind returns the variant name of v ("Int", "Sequence", ...).
func ValueKind(v ValueRecord) string {
	switch v.(type) {
	case IntValue:
		return "Int"
	case FloatValue:
		return "Float"
	case BoolValue:
		return "Bool"
	case StringValue:
		return "String"
	case SequenceValue:
		return "Sequence"
	case TupleValue:
		return "Tuple"
	case StructValue:
		return "Struct"
	case VariantValue:
		return "Variant"
	case ReferenceValue:
		return "Reference"
	case RawValue:
		return "Raw"
	case ErrorValue:
		return "Error"
	case NoneValue:
		return "None"
	case CellValue:
		return "Cell"
	case BigIntValue:
		return "BigInt"
	case CharValue:
		return "Char"
	case nil:
		return "<nil>"
	default:
		return "unknown"
	}
}
