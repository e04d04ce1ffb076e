// Package wire defines the self-describing event envelope shared by the
// JSON codec and the CBOR payload of the V1 binary format.
//
// Events are externally tagged: an envelope object has exactly one key,
// the variant name, whose value holds the variant's fields
// ({"Step": {"path_id": 0, "line": 3}}). Values, type specific info and
// rvalues are internally tagged by a "kind" key
// ({"kind": "Int", "i": 1, "type_id": 0}). Fields are pointers so that
// zero values survive omitempty and missing required fields are detected.
package wire

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("wire: missing required field")
	ErrUnknownKind  = errors.New("wire: unknown kind")
	ErrEnvelope     = errors.New("wire: envelope must hold exactly one variant")
	ErrInvalidText  = errors.New("wire: text is not valid UTF-8")
)

// TextError reports a string field that is not valid UTF-8, or a Char
// that is not a Unicode scalar value. Neither survives JSON or CBOR.
type TextError struct {
	Field string
}

func (e *TextError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidText, e.Field)
}

func (e *TextError) Unwrap() error { return ErrInvalidText }

// Event is the envelope of one trace event.
type Event struct {
	Path               *string             `json:"Path,omitempty" cbor:"Path,omitempty"`
	VariableName       *string             `json:"VariableName,omitempty" cbor:"VariableName,omitempty"`
	Variable           *string             `json:"Variable,omitempty" cbor:"Variable,omitempty"`
	Type               *Type               `json:"Type,omitempty" cbor:"Type,omitempty"`
	Value              *FullValue          `json:"Value,omitempty" cbor:"Value,omitempty"`
	Function           *Function           `json:"Function,omitempty" cbor:"Function,omitempty"`
	Step               *Step               `json:"Step,omitempty" cbor:"Step,omitempty"`
	Call               *Call               `json:"Call,omitempty" cbor:"Call,omitempty"`
	Return             *Return             `json:"Return,omitempty" cbor:"Return,omitempty"`
	Event              *RecordEvent        `json:"Event,omitempty" cbor:"Event,omitempty"`
	Asm                *[]string           `json:"Asm,omitempty" cbor:"Asm,omitempty"`
	BindVariable       *BindVariable       `json:"BindVariable,omitempty" cbor:"BindVariable,omitempty"`
	Assignment         *Assignment         `json:"Assignment,omitempty" cbor:"Assignment,omitempty"`
	DropVariables      *[]uint64           `json:"DropVariables,omitempty" cbor:"DropVariables,omitempty"`
	DropVariable       *uint64             `json:"DropVariable,omitempty" cbor:"DropVariable,omitempty"`
	CompoundValue      *PlaceValue         `json:"CompoundValue,omitempty" cbor:"CompoundValue,omitempty"`
	CellValue          *PlaceValue         `json:"CellValue,omitempty" cbor:"CellValue,omitempty"`
	AssignCompoundItem *AssignCompoundItem `json:"AssignCompoundItem,omitempty" cbor:"AssignCompoundItem,omitempty"`
	AssignCell         *AssignCell         `json:"AssignCell,omitempty" cbor:"AssignCell,omitempty"`
	VariableCell       *VariableCell       `json:"VariableCell,omitempty" cbor:"VariableCell,omitempty"`
	ThreadStart        *uint64             `json:"ThreadStart,omitempty" cbor:"ThreadStart,omitempty"`
	ThreadExit         *uint64             `json:"ThreadExit,omitempty" cbor:"ThreadExit,omitempty"`
	ThreadSwitch       *uint64             `json:"ThreadSwitch,omitempty" cbor:"ThreadSwitch,omitempty"`
	DropLastStep       *struct{}           `json:"DropLastStep,omitempty" cbor:"DropLastStep,omitempty"`
}

type Type struct {
	Kind         *uint8        `json:"kind,omitempty" cbor:"kind,omitempty"`
	LangType     *string       `json:"lang_type,omitempty" cbor:"lang_type,omitempty"`
	SpecificInfo *SpecificInfo `json:"specific_info,omitempty" cbor:"specific_info,omitempty"`
}

// SpecificInfo kinds are "None", "Struct" and "Pointer".
type SpecificInfo struct {
	Kind              string  `json:"kind" cbor:"kind"`
	Fields            []Field `json:"fields,omitempty" cbor:"fields,omitempty"`
	DereferenceTypeID *uint64 `json:"dereference_type_id,omitempty" cbor:"dereference_type_id,omitempty"`
}

type Field struct {
	Name   *string `json:"name,omitempty" cbor:"name,omitempty"`
	TypeID *uint64 `json:"type_id,omitempty" cbor:"type_id,omitempty"`
}

type FullValue struct {
	VariableID *uint64 `json:"variable_id,omitempty" cbor:"variable_id,omitempty"`
	Value      *Value  `json:"value,omitempty" cbor:"value,omitempty"`
}

type Function struct {
	Name   *string `json:"name,omitempty" cbor:"name,omitempty"`
	PathID *uint64 `json:"path_id,omitempty" cbor:"path_id,omitempty"`
	Line   *int64  `json:"line,omitempty" cbor:"line,omitempty"`
}

type Step struct {
	PathID *uint64 `json:"path_id,omitempty" cbor:"path_id,omitempty"`
	Line   *int64  `json:"line,omitempty" cbor:"line,omitempty"`
}

type Call struct {
	FunctionID *uint64     `json:"function_id,omitempty" cbor:"function_id,omitempty"`
	Args       []FullValue `json:"args,omitempty" cbor:"args,omitempty"`
}

type Return struct {
	ReturnValue *Value `json:"return_value,omitempty" cbor:"return_value,omitempty"`
}

type RecordEvent struct {
	Kind     *uint8 `json:"kind,omitempty" cbor:"kind,omitempty"`
	Metadata string `json:"metadata" cbor:"metadata"`
	Content  string `json:"content" cbor:"content"`
}

type BindVariable struct {
	VariableID *uint64 `json:"variable_id,omitempty" cbor:"variable_id,omitempty"`
	Place      *int64  `json:"place,omitempty" cbor:"place,omitempty"`
}

type Assignment struct {
	To     *uint64 `json:"to,omitempty" cbor:"to,omitempty"`
	PassBy *string `json:"pass_by,omitempty" cbor:"pass_by,omitempty"`
	From   *RValue `json:"from,omitempty" cbor:"from,omitempty"`
}

// RValue kinds are "Simple" and "Compound".
type RValue struct {
	Kind        string   `json:"kind" cbor:"kind"`
	VariableID  *uint64  `json:"variable_id,omitempty" cbor:"variable_id,omitempty"`
	VariableIDs []uint64 `json:"variable_ids,omitempty" cbor:"variable_ids,omitempty"`
}

type PlaceValue struct {
	Place *int64 `json:"place,omitempty" cbor:"place,omitempty"`
	Value *Value `json:"value,omitempty" cbor:"value,omitempty"`
}

type AssignCompoundItem struct {
	Place     *int64 `json:"place,omitempty" cbor:"place,omitempty"`
	Index     *int   `json:"index,omitempty" cbor:"index,omitempty"`
	ItemPlace *int64 `json:"item_place,omitempty" cbor:"item_place,omitempty"`
}

type AssignCell struct {
	Place    *int64 `json:"place,omitempty" cbor:"place,omitempty"`
	NewValue *Value `json:"new_value,omitempty" cbor:"new_value,omitempty"`
}

type VariableCell struct {
	VariableID *uint64 `json:"variable_id,omitempty" cbor:"variable_id,omitempty"`
	Place      *int64  `json:"place,omitempty" cbor:"place,omitempty"`
}

// Value is the kind-tagged form of a trace value. Which fields are
// required depends on Kind.
type Value struct {
	Kind          string   `json:"kind" cbor:"kind"`
	I             *int64   `json:"i,omitempty" cbor:"i,omitempty"`
	F             *float64 `json:"f,omitempty" cbor:"f,omitempty"`
	B             *bool    `json:"b,omitempty" cbor:"b,omitempty"`
	Text          *string  `json:"text,omitempty" cbor:"text,omitempty"`
	Elements      []Value  `json:"elements,omitempty" cbor:"elements,omitempty"`
	IsSlice       *bool    `json:"is_slice,omitempty" cbor:"is_slice,omitempty"`
	FieldValues   []Value  `json:"field_values,omitempty" cbor:"field_values,omitempty"`
	Discriminator *string  `json:"discriminator,omitempty" cbor:"discriminator,omitempty"`
	Contents      *Value   `json:"contents,omitempty" cbor:"contents,omitempty"`
	Dereferenced  *Value   `json:"dereferenced,omitempty" cbor:"dereferenced,omitempty"`
	Address       *uint64  `json:"address,omitempty" cbor:"address,omitempty"`
	Mutable       *bool    `json:"mutable,omitempty" cbor:"mutable,omitempty"`
	R             *string  `json:"r,omitempty" cbor:"r,omitempty"`
	Msg           *string  `json:"msg,omitempty" cbor:"msg,omitempty"`
	Place         *int64   `json:"place,omitempty" cbor:"place,omitempty"`
	Bytes         []byte   `json:"bytes,omitempty" cbor:"bytes,omitempty"`
	Negative      *bool    `json:"negative,omitempty" cbor:"negative,omitempty"`
	C             *string  `json:"c,omitempty" cbor:"c,omitempty"`
	TypeID        *uint64  `json:"type_id,omitempty" cbor:"type_id,omitempty"`
}

// fields accumulates the first missing-field error of a decode.
type fields struct {
	what string
	err  error
}

func need[T any](f *fields, p *T, name string) T {
	if p == nil {
		if f.err == nil {
			f.err = fmt.Errorf("%w: %s.%s", ErrMissingField, f.what, name)
		}
		var zero T
		return zero
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}
