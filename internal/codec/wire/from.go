package wire

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"codetrace/internal/trace"
)

var errNilValue = errors.New("wire: nil value")

// FromEvents converts a stream into envelopes.
func FromEvents(events []trace.Event) ([]Event, error) {
	out := make([]Event, 0, len(events))
	for i, ev := range events {
		w, err := FromEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

// textCheck keeps the first invalid text field seen during a conversion.
type textCheck struct {
	err error
}

func (c *textCheck) str(field, s string) *string {
	if c.err == nil && !utf8.ValidString(s) {
		c.err = &TextError{Field: field}
	}
	return &s
}

func (c *textCheck) strs(field string, ss []string) []string {
	for _, s := range ss {
		c.str(field, s)
	}
	return ss
}

// FromEvent converts one event into its envelope. Text that JSON or CBOR
// cannot carry unchanged fails with a *TextError.
func FromEvent(ev trace.Event) (Event, error) {
	var c textCheck
	w, err := c.event(ev)
	if err != nil {
		return Event{}, err
	}
	if c.err != nil {
		return Event{}, fmt.Errorf("%s: %w", trace.EventName(ev), c.err)
	}
	return w, nil
}

func (c *textCheck) event(ev trace.Event) (Event, error) {
	switch ev := ev.(type) {
	case trace.Path:
		return Event{Path: c.str("path", ev.Path)}, nil
	case trace.VariableName:
		return Event{VariableName: c.str("name", ev.Name)}, nil
	case trace.Variable:
		return Event{Variable: c.str("name", ev.Name)}, nil
	case trace.TypeRecord:
		info, err := c.typeInfo(trace.SpecificInfoOf(ev))
		if err != nil {
			return Event{}, err
		}
		return Event{Type: &Type{Kind: ptr(uint8(ev.Kind)), LangType: c.str("lang_type", ev.LangType), SpecificInfo: &info}}, nil
	case trace.FullValueRecord:
		fv, err := c.fullValue(ev)
		if err != nil {
			return Event{}, err
		}
		return Event{Value: &fv}, nil
	case trace.FunctionRecord:
		return Event{Function: &Function{
			Name:   c.str("name", ev.Name),
			PathID: ptr(uint64(ev.PathID)),
			Line:   ptr(int64(ev.Line)),
		}}, nil
	case trace.StepRecord:
		return Event{Step: &Step{PathID: ptr(uint64(ev.PathID)), Line: ptr(int64(ev.Line))}}, nil
	case trace.CallRecord:
		args := make([]FullValue, 0, len(ev.Args))
		for _, arg := range ev.Args {
			fv, err := c.fullValue(arg)
			if err != nil {
				return Event{}, err
			}
			args = append(args, fv)
		}
		return Event{Call: &Call{FunctionID: ptr(uint64(ev.FunctionID)), Args: args}}, nil
	case trace.ReturnRecord:
		v, err := c.value(ev.ReturnValue)
		if err != nil {
			return Event{}, err
		}
		return Event{Return: &Return{ReturnValue: &v}}, nil
	case trace.RecordEvent:
		c.str("metadata", ev.Metadata)
		c.str("content", ev.Content)
		return Event{Event: &RecordEvent{Kind: ptr(uint8(ev.Kind)), Metadata: ev.Metadata, Content: ev.Content}}, nil
	case trace.Asm:
		ins := c.strs("instructions", ev.Instructions)
		if ins == nil {
			ins = []string{}
		}
		return Event{Asm: &ins}, nil
	case trace.BindVariableRecord:
		return Event{BindVariable: &BindVariable{
			VariableID: ptr(uint64(ev.VariableID)),
			Place:      ptr(int64(ev.Place)),
		}}, nil
	case trace.AssignmentRecord:
		rv, err := fromRValue(ev.From)
		if err != nil {
			return Event{}, err
		}
		return Event{Assignment: &Assignment{
			To:     ptr(uint64(ev.To)),
			PassBy: ptr(ev.PassBy.String()),
			From:   &rv,
		}}, nil
	case trace.DropVariables:
		ids := fromVariableIDs(ev.VariableIDs)
		return Event{DropVariables: &ids}, nil
	case trace.DropVariable:
		return Event{DropVariable: ptr(uint64(ev.VariableID))}, nil
	case trace.CompoundValueRecord:
		v, err := c.value(ev.Value)
		if err != nil {
			return Event{}, err
		}
		return Event{CompoundValue: &PlaceValue{Place: ptr(int64(ev.Place)), Value: &v}}, nil
	case trace.CellValueRecord:
		v, err := c.value(ev.Value)
		if err != nil {
			return Event{}, err
		}
		return Event{CellValue: &PlaceValue{Place: ptr(int64(ev.Place)), Value: &v}}, nil
	case trace.AssignCompoundItemRecord:
		return Event{AssignCompoundItem: &AssignCompoundItem{
			Place:     ptr(int64(ev.Place)),
			Index:     ptr(ev.Index),
			ItemPlace: ptr(int64(ev.ItemPlace)),
		}}, nil
	case trace.AssignCellRecord:
		v, err := c.value(ev.NewValue)
		if err != nil {
			return Event{}, err
		}
		return Event{AssignCell: &AssignCell{Place: ptr(int64(ev.Place)), NewValue: &v}}, nil
	case trace.VariableCellRecord:
		return Event{VariableCell: &VariableCell{
			VariableID: ptr(uint64(ev.VariableID)),
			Place:      ptr(int64(ev.Place)),
		}}, nil
	case trace.ThreadStart:
		return Event{ThreadStart: ptr(uint64(ev.ThreadID))}, nil
	case trace.ThreadExit:
		return Event{ThreadExit: ptr(uint64(ev.ThreadID))}, nil
	case trace.ThreadSwitch:
		return Event{ThreadSwitch: ptr(uint64(ev.ThreadID))}, nil
	case trace.DropLastStep:
		return Event{DropLastStep: &struct{}{}}, nil
	default:
		return Event{}, fmt.Errorf("wire: unsupported event %T", ev)
	}
}

func (c *textCheck) fullValue(fv trace.FullValueRecord) (FullValue, error) {
	v, err := c.value(fv.Value)
	if err != nil {
		return FullValue{}, err
	}
	return FullValue{VariableID: ptr(uint64(fv.VariableID)), Value: &v}, nil
}

func (c *textCheck) typeInfo(info trace.TypeSpecificInfo) (SpecificInfo, error) {
	switch info := info.(type) {
	case trace.NoSpecificInfo:
		return SpecificInfo{Kind: "None"}, nil
	case trace.StructInfo:
		out := make([]Field, 0, len(info.Fields))
		for _, f := range info.Fields {
			out = append(out, Field{Name: c.str("field name", f.Name), TypeID: ptr(uint64(f.TypeID))})
		}
		return SpecificInfo{Kind: "Struct", Fields: out}, nil
	case trace.PointerInfo:
		return SpecificInfo{Kind: "Pointer", DereferenceTypeID: ptr(uint64(info.DereferenceTypeID))}, nil
	default:
		return SpecificInfo{}, fmt.Errorf("wire: unsupported type info %T", info)
	}
}

func fromRValue(rv trace.RValue) (RValue, error) {
	switch rv := rv.(type) {
	case trace.SimpleRValue:
		return RValue{Kind: "Simple", VariableID: ptr(uint64(rv.VariableID))}, nil
	case trace.CompoundRValue:
		return RValue{Kind: "Compound", VariableIDs: fromVariableIDs(rv.VariableIDs)}, nil
	default:
		return RValue{}, fmt.Errorf("wire: unsupported rvalue %T", rv)
	}
}

func fromVariableIDs(ids []trace.VariableID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

func (c *textCheck) values(vs []trace.ValueRecord) ([]Value, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]Value, 0, len(vs))
	for _, v := range vs {
		w, err := c.value(v)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// FromValue converts a value tree into its kind-tagged form. Invalid text
// fails with a *TextError.
func FromValue(v trace.ValueRecord) (Value, error) {
	var c textCheck
	w, err := c.value(v)
	if err != nil {
		return Value{}, err
	}
	if c.err != nil {
		return Value{}, c.err
	}
	return w, nil
}

func (c *textCheck) value(v trace.ValueRecord) (Value, error) {
	switch v := v.(type) {
	case trace.IntValue:
		return Value{Kind: "Int", I: ptr(v.I), TypeID: typeID(v.TypeID)}, nil
	case trace.FloatValue:
		return Value{Kind: "Float", F: ptr(v.F), TypeID: typeID(v.TypeID)}, nil
	case trace.BoolValue:
		return Value{Kind: "Bool", B: ptr(v.B), TypeID: typeID(v.TypeID)}, nil
	case trace.StringValue:
		return Value{Kind: "String", Text: c.str("text", v.Text), TypeID: typeID(v.TypeID)}, nil
	case trace.SequenceValue:
		els, err := c.values(v.Elements)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: "Sequence", Elements: els, IsSlice: ptr(v.IsSlice), TypeID: typeID(v.TypeID)}, nil
	case trace.TupleValue:
		els, err := c.values(v.Elements)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: "Tuple", Elements: els, TypeID: typeID(v.TypeID)}, nil
	case trace.StructValue:
		fvs, err := c.values(v.FieldValues)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: "Struct", FieldValues: fvs, TypeID: typeID(v.TypeID)}, nil
	case trace.VariantValue:
		contents, err := c.value(v.Contents)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: "Variant", Discriminator: c.str("discriminator", v.Discriminator), Contents: &contents, TypeID: typeID(v.TypeID)}, nil
	case trace.ReferenceValue:
		deref, err := c.value(v.Dereferenced)
		if err != nil {
			return Value{}, err
		}
		return Value{
			Kind:         "Reference",
			Dereferenced: &deref,
			Address:      ptr(v.Address),
			Mutable:      ptr(v.Mutable),
			TypeID:       typeID(v.TypeID),
		}, nil
	case trace.RawValue:
		return Value{Kind: "Raw", R: c.str("r", v.R), TypeID: typeID(v.TypeID)}, nil
	case trace.ErrorValue:
		return Value{Kind: "Error", Msg: c.str("msg", v.Msg), TypeID: typeID(v.TypeID)}, nil
	case trace.NoneValue:
		return Value{Kind: "None", TypeID: typeID(v.TypeID)}, nil
	case trace.CellValue:
		return Value{Kind: "Cell", Place: ptr(int64(v.Place))}, nil
	case trace.BigIntValue:
		return Value{Kind: "BigInt", Bytes: v.B, Negative: ptr(v.Negative), TypeID: typeID(v.TypeID)}, nil
	case trace.CharValue:
		if !utf8.ValidRune(v.C) && c.err == nil {
			c.err = &TextError{Field: "c"}
		}
		return Value{Kind: "Char", C: ptr(string(v.C)), TypeID: typeID(v.TypeID)}, nil
	case nil:
		return Value{}, errNilValue
	default:
		return Value{}, fmt.Errorf("wire: unsupported value %T", v)
	}
}

func typeID(id trace.TypeID) *uint64 {
	return ptr(uint64(id))
}
