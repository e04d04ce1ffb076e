// Package testkit holds event fixtures and comparison helpers shared by
// codec and facade tests.
package testkit

import (
	"fmt"
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"codetrace/internal/trace"
)

// SampleEvents returns one well-formed stream that uses every event
// variant and every value variant except Char.
func SampleEvents() []trace.Event {
	return []trace.Event{
		trace.Path{Path: "/home/user/project/src/main.rs"},
		trace.FunctionRecord{Name: trace.TopLevelFunctionName, PathID: 0, Line: 1},
		trace.CallRecord{FunctionID: 0},
		trace.TypeRecord{Kind: trace.TypeKindNone, LangType: "None"},
		trace.TypeRecord{Kind: trace.TypeKindInt, LangType: "i64"},
		trace.TypeRecord{Kind: trace.TypeKindStruct, LangType: "Point", SpecificInfo: trace.StructInfo{
			Fields: []trace.FieldTypeRecord{{Name: "x", TypeID: 1}, {Name: "y", TypeID: 1}},
		}},
		trace.TypeRecord{Kind: trace.TypeKindPointer, LangType: "&Point", SpecificInfo: trace.PointerInfo{DereferenceTypeID: 2}},
		trace.StepRecord{PathID: 0, Line: 2},
		trace.VariableName{Name: "p"},
		trace.Variable{Name: "legacy"},
		trace.FullValueRecord{VariableID: 0, Value: trace.StructValue{
			FieldValues: []trace.ValueRecord{trace.IntValue{I: -3, TypeID: 1}, trace.IntValue{I: math.MaxInt64, TypeID: 1}},
			TypeID:      2,
		}},
		trace.FullValueRecord{VariableID: 1, Value: trace.ReferenceValue{
			Dereferenced: trace.StructValue{TypeID: 2},
			Address:      math.MaxUint64,
			Mutable:      true,
			TypeID:       3,
		}},
		trace.FullValueRecord{VariableID: 1, Value: trace.SequenceValue{
			Elements: []trace.ValueRecord{
				trace.FloatValue{F: 1.5, TypeID: 1},
				trace.BoolValue{B: true, TypeID: 1},
				trace.StringValue{Text: "héllo\n", TypeID: 1},
				trace.TupleValue{Elements: []trace.ValueRecord{trace.RawValue{R: "<opaque>", TypeID: 1}}, TypeID: 1},
				trace.VariantValue{Discriminator: "Some", Contents: trace.ErrorValue{Msg: "boom", TypeID: 1}, TypeID: 1},
				trace.BigIntValue{B: []byte{0x01, 0x00}, Negative: true, TypeID: 1},
				trace.CellValue{Place: 7},
				trace.NoneValue{TypeID: 0},
			},
			IsSlice: true,
			TypeID:  1,
		}},
		trace.RecordEvent{Kind: trace.EventLogWrite, Metadata: "stdout", Content: "hi\n"},
		trace.Asm{Instructions: []string{"mov rax, 1", "ret"}},
		trace.BindVariableRecord{VariableID: 0, Place: 7},
		trace.AssignmentRecord{To: 0, PassBy: trace.PassByReference, From: trace.SimpleRValue{VariableID: 1}},
		trace.AssignmentRecord{To: 1, PassBy: trace.PassByValue, From: trace.CompoundRValue{VariableIDs: []trace.VariableID{0, 1}}},
		trace.CompoundValueRecord{Place: 7, Value: trace.TupleValue{TypeID: 1}},
		trace.CellValueRecord{Place: 8, Value: trace.IntValue{I: 0, TypeID: 1}},
		trace.AssignCompoundItemRecord{Place: 7, Index: 0, ItemPlace: 8},
		trace.AssignCellRecord{Place: 8, NewValue: trace.IntValue{I: 9, TypeID: 1}},
		trace.VariableCellRecord{VariableID: 0, Place: -1},
		trace.ThreadStart{ThreadID: 2},
		trace.ThreadSwitch{ThreadID: 2},
		trace.ThreadExit{ThreadID: 2},
		trace.DropVariables{VariableIDs: []trace.VariableID{0}},
		trace.DropVariable{VariableID: 1},
		trace.DropLastStep{},
		trace.ReturnRecord{ReturnValue: trace.None},
	}
}

// DiffEvents returns a human readable diff of two streams, or "" when
// they are structurally equal.
func DiffEvents(want, got []trace.Event) string {
	if trace.EqualEventLists(want, got) {
		return ""
	}
	if d := cmp.Diff(want, got, cmpopts.EquateEmpty()); d != "" {
		return d
	}
	return fmt.Sprintf("streams differ:\nwant %#v\ngot  %#v", want, got)
}
