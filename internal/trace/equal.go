package trace

import (
	"bytes"
	"slices"
)

// EqualValues reports whether a and b are the same value tree: same
// variants with equal fields at every level. Floats compare with ==.
// A nil slice equals an empty one.
func EqualValues(a, b ValueRecord) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case IntValue:
		bv, ok := b.(IntValue)
		return ok && av == bv
	case FloatValue:
		bv, ok := b.(FloatValue)
		return ok && av.F == bv.F && av.TypeID == bv.TypeID
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av == bv
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av == bv
	case SequenceValue:
		bv, ok := b.(SequenceValue)
		return ok && av.IsSlice == bv.IsSlice && av.TypeID == bv.TypeID && equalValueLists(av.Elements, bv.Elements)
	case TupleValue:
		bv, ok := b.(TupleValue)
		return ok && av.TypeID == bv.TypeID && equalValueLists(av.Elements, bv.Elements)
	case StructValue:
		bv, ok := b.(StructValue)
		return ok && av.TypeID == bv.TypeID && equalValueLists(av.FieldValues, bv.FieldValues)
	case VariantValue:
		bv, ok := b.(VariantValue)
		return ok && av.Discriminator == bv.Discriminator && av.TypeID == bv.TypeID && EqualValues(av.Contents, bv.Contents)
	case ReferenceValue:
		bv, ok := b.(ReferenceValue)
		return ok && av.Address == bv.Address && av.Mutable == bv.Mutable && av.TypeID == bv.TypeID &&
			EqualValues(av.Dereferenced, bv.Dereferenced)
	case RawValue:
		bv, ok := b.(RawValue)
		return ok && av == bv
	case ErrorValue:
		bv, ok := b.(ErrorValue)
		return ok && av == bv
	case NoneValue:
		bv, ok := b.(NoneValue)
		return ok && av == bv
	case CellValue:
		bv, ok := b.(CellValue)
		return ok && av == bv
	case BigIntValue:
		bv, ok := b.(BigIntValue)
		return ok && av.Negative == bv.Negative && av.TypeID == bv.TypeID && bytes.Equal(av.B, bv.B)
	case CharValue:
		bv, ok := b.(CharValue)
		return ok && av == bv
	default:
		return false
	}
}

func equalValueLists(a, b []ValueRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualValues(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalFullValues(a, b []FullValueRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].VariableID != b[i].VariableID || !EqualValues(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// EqualTypeRecords compares kind, name and specific info.
func EqualTypeRecords(a, b TypeRecord) bool {
	if a.Kind != b.Kind || a.LangType != b.LangType {
		return false
	}
	switch ai := SpecificInfoOf(a).(type) {
	case NoSpecificInfo:
		_, ok := SpecificInfoOf(b).(NoSpecificInfo)
		return ok
	case StructInfo:
		bi, ok := SpecificInfoOf(b).(StructInfo)
		if !ok || len(ai.Fields) != len(bi.Fields) {
			return false
		}
		for i := range ai.Fields {
			if ai.Fields[i] != bi.Fields[i] {
				return false
			}
		}
		return true
	case PointerInfo:
		bi, ok := SpecificInfoOf(b).(PointerInfo)
		return ok && ai == bi
	default:
		return false
	}
}

func equalRValues(a, b RValue) bool {
	switch av := a.(type) {
	case SimpleRValue:
		bv, ok := b.(SimpleRValue)
		return ok && av == bv
	case CompoundRValue:
		bv, ok := b.(CompoundRValue)
		return ok && slices.Equal(av.VariableIDs, bv.VariableIDs)
	case nil:
		return b == nil
	default:
		return false
	}
}

// EqualEvents reports whether a and b are the same event, comparing
// nested values with EqualValues.
func EqualEvents(a, b Event) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Path:
		bv, ok := b.(Path)
		return ok && av == bv
	case VariableName:
		bv, ok := b.(VariableName)
		return ok && av == bv
	case Variable:
		bv, ok := b.(Variable)
		return ok && av == bv
	case TypeRecord:
		bv, ok := b.(TypeRecord)
		return ok && EqualTypeRecords(av, bv)
	case FullValueRecord:
		bv, ok := b.(FullValueRecord)
		return ok && av.VariableID == bv.VariableID && EqualValues(av.Value, bv.Value)
	case FunctionRecord:
		bv, ok := b.(FunctionRecord)
		return ok && av == bv
	case StepRecord:
		bv, ok := b.(StepRecord)
		return ok && av == bv
	case CallRecord:
		bv, ok := b.(CallRecord)
		return ok && av.FunctionID == bv.FunctionID && equalFullValues(av.Args, bv.Args)
	case ReturnRecord:
		bv, ok := b.(ReturnRecord)
		return ok && EqualValues(av.ReturnValue, bv.ReturnValue)
	case RecordEvent:
		bv, ok := b.(RecordEvent)
		return ok && av == bv
	case Asm:
		bv, ok := b.(Asm)
		return ok && slices.Equal(av.Instructions, bv.Instructions)
	case BindVariableRecord:
		bv, ok := b.(BindVariableRecord)
		return ok && av == bv
	case AssignmentRecord:
		bv, ok := b.(AssignmentRecord)
		return ok && av.To == bv.To && av.PassBy == bv.PassBy && equalRValues(av.From, bv.From)
	case DropVariables:
		bv, ok := b.(DropVariables)
		return ok && slices.Equal(av.VariableIDs, bv.VariableIDs)
	case DropVariable:
		bv, ok := b.(DropVariable)
		return ok && av == bv
	case CompoundValueRecord:
		bv, ok := b.(CompoundValueRecord)
		return ok && av.Place == bv.Place && EqualValues(av.Value, bv.Value)
	case CellValueRecord:
		bv, ok := b.(CellValueRecord)
		return ok && av.Place == bv.Place && EqualValues(av.Value, bv.Value)
	case AssignCompoundItemRecord:
		bv, ok := b.(AssignCompoundItemRecord)
		return ok && av == bv
	case AssignCellRecord:
		bv, ok := b.(AssignCellRecord)
		return ok && av.Place == bv.Place && EqualValues(av.NewValue, bv.NewValue)
	case VariableCellRecord:
		bv, ok := b.(VariableCellRecord)
		return ok && av == bv
	case ThreadStart:
		bv, ok := b.(ThreadStart)
		return ok && av == bv
	case ThreadExit:
		bv, ok := b.(ThreadExit)
		return ok && av == bv
	case ThreadSwitch:
		bv, ok := b.(ThreadSwitch)
		return ok && av == bv
	case DropLastStep:
		_, ok := b.(DropLastStep)
		return ok
	default:
		return false
	}
}

// EqualEventLists compares two streams element by element.
func EqualEventLists(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualEvents(a[i], b[i]) {
			return false
		}
	}
	return true
}
