package trace

// TypeRecord declares a type. LangType is the producer's own type name and
// is the interning key.
type TypeRecord struct {
	Kind         TypeKind
	LangType     string
	SpecificInfo TypeSpecificInfo
}

// TypeSpecificInfo carries the kind dependent part of a TypeRecord.
// A nil TypeSpecificInfo is treated as NoSpecificInfo.
//
//sumtype:decl
type TypeSpecificInfo interface {
	isTypeSpecificInfo()
}

type NoSpecificInfo struct{}

type StructInfo struct {
	Fields []FieldTypeRecord
}

type PointerInfo struct {
	DereferenceTypeID TypeID
}

type FieldTypeRecord struct {
	Name   string
	TypeID TypeID
}

func (NoSpecificInfo) isTypeSpecificInfo() {}
func (StructInfo) isTypeSpecificInfo()     {}
func (PointerInfo) isTypeSpecificInfo()    {}

// SpecificInfoOf returns info, mapping nil to NoSpecificInfo.
func SpecificInfoOf(t TypeRecord) TypeSpecificInfo {
	if t.SpecificInfo == nil {
		return NoSpecificInfo{}
	}
	return t.SpecificInfo
}

// RValue is the provenance of an assignment's right-hand side.
//
//sumtype:decl
type RValue interface {
	isRValue()
}

// SimpleRValue comes from exactly one variable (a move or a copy).
type SimpleRValue struct {
	VariableID VariableID
}

// CompoundRValue is built from several variables.
type CompoundRValue struct {
	VariableIDs []VariableID
}

func (SimpleRValue) isRValue()   {}
func (CompoundRValue) isRValue() {}

// TraceMetadata is the content of the trace metadata side file.
type TraceMetadata struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
	Workdir string   `json:"workdir"`
}
