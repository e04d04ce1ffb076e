package wire

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"codetrace/internal/trace"
)

// ToEvents converts envelopes back into a stream.
func ToEvents(envs []Event) ([]trace.Event, error) {
	out := make([]trace.Event, 0, len(envs))
	for i := range envs {
		ev, err := ToEvent(envs[i])
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// variants lists the names of the set variant fields of e.
func (e *Event) variants() []string {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(e.Path != nil, "Path")
	add(e.VariableName != nil, "VariableName")
	add(e.Variable != nil, "Variable")
	add(e.Type != nil, "Type")
	add(e.Value != nil, "Value")
	add(e.Function != nil, "Function")
	add(e.Step != nil, "Step")
	add(e.Call != nil, "Call")
	add(e.Return != nil, "Return")
	add(e.Event != nil, "Event")
	add(e.Asm != nil, "Asm")
	add(e.BindVariable != nil, "BindVariable")
	add(e.Assignment != nil, "Assignment")
	add(e.DropVariables != nil, "DropVariables")
	add(e.DropVariable != nil, "DropVariable")
	add(e.CompoundValue != nil, "CompoundValue")
	add(e.CellValue != nil, "CellValue")
	add(e.AssignCompoundItem != nil, "AssignCompoundItem")
	add(e.AssignCell != nil, "AssignCell")
	add(e.VariableCell != nil, "VariableCell")
	add(e.ThreadStart != nil, "ThreadStart")
	add(e.ThreadExit != nil, "ThreadExit")
	add(e.ThreadSwitch != nil, "ThreadSwitch")
	add(e.DropLastStep != nil, "DropLastStep")
	return set
}

// ToEvent converts one envelope. The envelope must hold exactly one
// variant and every required field of it.
func ToEvent(e Event) (trace.Event, error) {
	set := e.variants()
	if len(set) != 1 {
		if len(set) == 0 {
			return nil, fmt.Errorf("%w: none set", ErrEnvelope)
		}
		return nil, fmt.Errorf("%w: got %s", ErrEnvelope, strings.Join(set, ", "))
	}
	f := &fields{what: set[0]}
	ev := toEvent(f, &e)
	if f.err != nil {
		return nil, f.err
	}
	return ev, nil
}

func toEvent(f *fields, e *Event) trace.Event {
	switch {
	case e.Path != nil:
		return trace.Path{Path: *e.Path}
	case e.VariableName != nil:
		return trace.VariableName{Name: *e.VariableName}
	case e.Variable != nil:
		return trace.Variable{Name: *e.Variable}
	case e.Type != nil:
		return toTypeRecord(f, e.Type)
	case e.Value != nil:
		return toFullValue(f, e.Value)
	case e.Function != nil:
		return trace.FunctionRecord{
			Name:   need(f, e.Function.Name, "name"),
			PathID: trace.PathID(need(f, e.Function.PathID, "path_id")),
			Line:   trace.Line(need(f, e.Function.Line, "line")),
		}
	case e.Step != nil:
		return trace.StepRecord{
			PathID: trace.PathID(need(f, e.Step.PathID, "path_id")),
			Line:   trace.Line(need(f, e.Step.Line, "line")),
		}
	case e.Call != nil:
		var args []trace.FullValueRecord
		if len(e.Call.Args) > 0 {
			args = make([]trace.FullValueRecord, 0, len(e.Call.Args))
		}
		for i := range e.Call.Args {
			args = append(args, toFullValue(f, &e.Call.Args[i]))
		}
		return trace.CallRecord{FunctionID: trace.FunctionID(need(f, e.Call.FunctionID, "function_id")), Args: args}
	case e.Return != nil:
		return trace.ReturnRecord{ReturnValue: toValueField(f, e.Return.ReturnValue, "return_value")}
	case e.Event != nil:
		raw := need(f, e.Event.Kind, "kind")
		kind := trace.EventLogKind(raw)
		if f.err == nil && !kind.Valid() {
			f.err = fmt.Errorf("%w: event log kind %d", ErrUnknownKind, raw)
		}
		return trace.RecordEvent{Kind: kind, Metadata: e.Event.Metadata, Content: e.Event.Content}
	case e.Asm != nil:
		return trace.Asm{Instructions: *e.Asm}
	case e.BindVariable != nil:
		return trace.BindVariableRecord{
			VariableID: trace.VariableID(need(f, e.BindVariable.VariableID, "variable_id")),
			Place:      trace.Place(need(f, e.BindVariable.Place, "place")),
		}
	case e.Assignment != nil:
		return toAssignment(f, e.Assignment)
	case e.DropVariables != nil:
		return trace.DropVariables{VariableIDs: toVariableIDs(*e.DropVariables)}
	case e.DropVariable != nil:
		return trace.DropVariable{VariableID: trace.VariableID(*e.DropVariable)}
	case e.CompoundValue != nil:
		return trace.CompoundValueRecord{
			Place: trace.Place(need(f, e.CompoundValue.Place, "place")),
			Value: toValueField(f, e.CompoundValue.Value, "value"),
		}
	case e.CellValue != nil:
		return trace.CellValueRecord{
			Place: trace.Place(need(f, e.CellValue.Place, "place")),
			Value: toValueField(f, e.CellValue.Value, "value"),
		}
	case e.AssignCompoundItem != nil:
		return trace.AssignCompoundItemRecord{
			Place:     trace.Place(need(f, e.AssignCompoundItem.Place, "place")),
			Index:     need(f, e.AssignCompoundItem.Index, "index"),
			ItemPlace: trace.Place(need(f, e.AssignCompoundItem.ItemPlace, "item_place")),
		}
	case e.AssignCell != nil:
		return trace.AssignCellRecord{
			Place:    trace.Place(need(f, e.AssignCell.Place, "place")),
			NewValue: toValueField(f, e.AssignCell.NewValue, "new_value"),
		}
	case e.VariableCell != nil:
		return trace.VariableCellRecord{
			VariableID: trace.VariableID(need(f, e.VariableCell.VariableID, "variable_id")),
			Place:      trace.Place(need(f, e.VariableCell.Place, "place")),
		}
	case e.ThreadStart != nil:
		return trace.ThreadStart{ThreadID: trace.ThreadID(*e.ThreadStart)}
	case e.ThreadExit != nil:
		return trace.ThreadExit{ThreadID: trace.ThreadID(*e.ThreadExit)}
	case e.ThreadSwitch != nil:
		return trace.ThreadSwitch{ThreadID: trace.ThreadID(*e.ThreadSwitch)}
	case e.DropLastStep != nil:
		return trace.DropLastStep{}
	default:
		f.err = fmt.Errorf("%w: none set", ErrEnvelope)
		return nil
	}
}

func toTypeRecord(f *fields, t *Type) trace.TypeRecord {
	raw := need(f, t.Kind, "kind")
	kind := trace.TypeKind(raw)
	if f.err == nil && !kind.Valid() {
		f.err = fmt.Errorf("%w: type kind %d", ErrUnknownKind, raw)
	}
	rec := trace.TypeRecord{Kind: kind, LangType: need(f, t.LangType, "lang_type")}
	info := need(f, t.SpecificInfo, "specific_info")
	if f.err != nil {
		return rec
	}
	switch info.Kind {
	case "None":
		rec.SpecificInfo = trace.NoSpecificInfo{}
	case "Struct":
		out := make([]trace.FieldTypeRecord, 0, len(info.Fields))
		for _, fld := range info.Fields {
			out = append(out, trace.FieldTypeRecord{
				Name:   need(f, fld.Name, "specific_info.fields.name"),
				TypeID: trace.TypeID(need(f, fld.TypeID, "specific_info.fields.type_id")),
			})
		}
		rec.SpecificInfo = trace.StructInfo{Fields: out}
	case "Pointer":
		rec.SpecificInfo = trace.PointerInfo{
			DereferenceTypeID: trace.TypeID(need(f, info.DereferenceTypeID, "specific_info.dereference_type_id")),
		}
	default:
		f.err = fmt.Errorf("%w: specific info %q", ErrUnknownKind, info.Kind)
	}
	return rec
}

func toAssignment(f *fields, a *Assignment) trace.AssignmentRecord {
	rec := trace.AssignmentRecord{To: trace.VariableID(need(f, a.To, "to"))}
	passBy := need(f, a.PassBy, "pass_by")
	from := need(f, a.From, "from")
	if f.err != nil {
		return rec
	}
	p, err := trace.ParsePassBy(passBy)
	if err != nil {
		f.err = fmt.Errorf("%w: %w", ErrUnknownKind, err)
		return rec
	}
	rec.PassBy = p
	switch from.Kind {
	case "Simple":
		rec.From = trace.SimpleRValue{VariableID: trace.VariableID(need(f, from.VariableID, "from.variable_id"))}
	case "Compound":
		rec.From = trace.CompoundRValue{VariableIDs: toVariableIDs(from.VariableIDs)}
	default:
		f.err = fmt.Errorf("%w: rvalue %q", ErrUnknownKind, from.Kind)
	}
	return rec
}

func toVariableIDs(ids []uint64) []trace.VariableID {
	out := make([]trace.VariableID, len(ids))
	for i, id := range ids {
		out[i] = trace.VariableID(id)
	}
	return out
}

func toFullValue(f *fields, fv *FullValue) trace.FullValueRecord {
	return trace.FullValueRecord{
		VariableID: trace.VariableID(need(f, fv.VariableID, "variable_id")),
		Value:      toValueField(f, fv.Value, "value"),
	}
}

func toValueField(f *fields, v *Value, name string) trace.ValueRecord {
	w := need(f, v, name)
	if f.err != nil {
		return nil
	}
	out, err := ToValue(w)
	if err != nil {
		f.err = fmt.Errorf("%s.%s: %w", f.what, name, err)
		return nil
	}
	return out
}

// ToValue converts a kind-tagged value tree back into a trace value.
func ToValue(v Value) (trace.ValueRecord, error) {
	f := &fields{what: v.Kind}
	out := toValue(f, &v)
	if f.err != nil {
		return nil, f.err
	}
	return out, nil
}

func toValues(f *fields, vs []Value) []trace.ValueRecord {
	if len(vs) == 0 {
		return nil
	}
	out := make([]trace.ValueRecord, 0, len(vs))
	for i := range vs {
		if f.err != nil {
			return nil
		}
		out = append(out, toChild(f, &vs[i]))
	}
	return out
}

func toChild(f *fields, v *Value) trace.ValueRecord {
	child := &fields{what: v.Kind}
	out := toValue(child, v)
	if child.err != nil && f.err == nil {
		f.err = child.err
	}
	return out
}

func toValue(f *fields, v *Value) trace.ValueRecord {
	tid := func() trace.TypeID { return trace.TypeID(need(f, v.TypeID, "type_id")) }
	switch v.Kind {
	case "Int":
		return trace.IntValue{I: need(f, v.I, "i"), TypeID: tid()}
	case "Float":
		return trace.FloatValue{F: need(f, v.F, "f"), TypeID: tid()}
	case "Bool":
		return trace.BoolValue{B: need(f, v.B, "b"), TypeID: tid()}
	case "String":
		return trace.StringValue{Text: need(f, v.Text, "text"), TypeID: tid()}
	case "Sequence":
		return trace.SequenceValue{
			Elements: toValues(f, v.Elements),
			IsSlice:  need(f, v.IsSlice, "is_slice"),
			TypeID:   tid(),
		}
	case "Tuple":
		return trace.TupleValue{Elements: toValues(f, v.Elements), TypeID: tid()}
	case "Struct":
		return trace.StructValue{FieldValues: toValues(f, v.FieldValues), TypeID: tid()}
	case "Variant":
		contents := need(f, v.Contents, "contents")
		out := trace.VariantValue{Discriminator: need(f, v.Discriminator, "discriminator"), TypeID: tid()}
		if f.err == nil {
			out.Contents = toChild(f, &contents)
		}
		return out
	case "Reference":
		deref := need(f, v.Dereferenced, "dereferenced")
		out := trace.ReferenceValue{
			Address: need(f, v.Address, "address"),
			Mutable: need(f, v.Mutable, "mutable"),
			TypeID:  tid(),
		}
		if f.err == nil {
			out.Dereferenced = toChild(f, &deref)
		}
		return out
	case "Raw":
		return trace.RawValue{R: need(f, v.R, "r"), TypeID: tid()}
	case "Error":
		return trace.ErrorValue{Msg: need(f, v.Msg, "msg"), TypeID: tid()}
	case "None":
		return trace.NoneValue{TypeID: tid()}
	case "Cell":
		return trace.CellValue{Place: trace.Place(need(f, v.Place, "place"))}
	case "BigInt":
		return trace.BigIntValue{B: v.Bytes, Negative: need(f, v.Negative, "negative"), TypeID: tid()}
	case "Char":
		s := need(f, v.C, "c")
		r, size := utf8.DecodeRuneInString(s)
		if f.err == nil && (size == 0 || size != len(s) || r == utf8.RuneError && size == 1) {
			f.err = fmt.Errorf("wire: Char.c must hold one character, got %q", s)
		}
		return trace.CharValue{C: r, TypeID: tid()}
	default:
		f.err = fmt.Errorf("%w: value %q", ErrUnknownKind, v.Kind)
		return nil
	}
}
