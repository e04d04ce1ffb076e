package packed

import (
	"bytes"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"codetrace/internal/codec/header"
	"codetrace/internal/trace"
)

// Decode reads a V0 file: the header, then the event message. Trailing
// bytes after the message are an error.
func Decode(r io.Reader) ([]trace.Event, error) {
	if err := header.Expect(r, header.V0); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("packed: read: %w", err)
	}
	return DecodeMessage(data)
}

// DecodeMessage decodes the message that follows the header.
func DecodeMessage(data []byte) ([]trace.Event, error) {
	br := bytes.NewReader(data)
	d := &decoder{dec: msgpack.NewDecoder(br)}
	n := d.arrayLen("event list")
	events := make([]trace.Event, 0, preallocLen(n))
	for i := 0; i < n && d.err == nil; i++ {
		ev := d.event()
		if d.err != nil {
			return nil, fmt.Errorf("event %d: %w", i, d.err)
		}
		events = append(events, ev)
	}
	if d.err != nil {
		return nil, d.err
	}
	if br.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, br.Len())
	}
	return events, nil
}

// decoder keeps the first failure; reads after it return zero values.
type decoder struct {
	dec *msgpack.Decoder
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) check(what string, err error) {
	if err != nil {
		d.fail(fmt.Errorf("packed: decode %s: %w", what, err))
	}
}

func (d *decoder) arrayLen(what string) int {
	if d.err != nil {
		return 0
	}
	n, err := d.dec.DecodeArrayLen()
	d.check(what, err)
	if d.err == nil && n < 0 {
		d.fail(fmt.Errorf("%w: %s is nil", ErrMalformed, what))
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *decoder) expect(what string, want int) {
	if n := d.arrayLen(what); d.err == nil && n != want {
		d.fail(badArity(what, n, want))
	}
}

func (d *decoder) u64(what string) uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.DecodeUint64()
	d.check(what, err)
	return v
}

func (d *decoder) i64(what string) int64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.DecodeInt64()
	d.check(what, err)
	return v
}

func (d *decoder) str(what string) string {
	if d.err != nil {
		return ""
	}
	v, err := d.dec.DecodeString()
	d.check(what, err)
	return v
}

func (d *decoder) boolean(what string) bool {
	if d.err != nil {
		return false
	}
	v, err := d.dec.DecodeBool()
	d.check(what, err)
	return v
}

func (d *decoder) float(what string) float64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.DecodeFloat64()
	d.check(what, err)
	return v
}

func (d *decoder) bytes(what string) []byte {
	if d.err != nil {
		return nil
	}
	v, err := d.dec.DecodeBytes()
	d.check(what, err)
	return v
}

func (d *decoder) u8(what string) uint8 {
	v := d.u64(what)
	if d.err != nil {
		return 0
	}
	n, err := safecast.Conv[uint8](v)
	if err != nil {
		d.fail(&RangeError{Field: what, Err: err})
	}
	return n
}

// head reads a union array header and its tag, returning the number of
// fields that follow the tag.
func (d *decoder) head(what string) (uint8, int) {
	n := d.arrayLen(what)
	if d.err == nil && n < 1 {
		d.fail(fmt.Errorf("%w: %s has no tag", ErrMalformed, what))
	}
	tag := d.u8(what + " tag")
	return tag, n - 1
}

func (d *decoder) arity(what string, got, want int) {
	if d.err == nil && got != want {
		d.fail(badArity(what, got, want))
	}
}

func (d *decoder) id(field string) uint64 {
	d.expect(field, 1)
	v := d.i64(field)
	if d.err != nil {
		return 0
	}
	n, err := safecast.Conv[uint64](v)
	if err != nil {
		d.fail(&RangeError{Field: field, Err: err})
	}
	return n
}

func (d *decoder) place(field string) trace.Place {
	d.expect(field, 1)
	return trace.Place(d.i64(field))
}

func (d *decoder) typeID() trace.TypeID { return trace.TypeID(d.id("type_id")) }

func (d *decoder) variableID() trace.VariableID { return trace.VariableID(d.id("variable_id")) }

func (d *decoder) pathID() trace.PathID { return trace.PathID(d.id("path_id")) }

func (d *decoder) threadID() trace.ThreadID { return trace.ThreadID(d.id("thread_id")) }

func (d *decoder) line() trace.Line { return trace.Line(d.i64("line")) }

func (d *decoder) event() trace.Event {
	raw, fields := d.head("event")
	if d.err != nil {
		return nil
	}
	tag := eventTag(raw)
	switch tag {
	case tagPath:
		d.arity("Path", fields, 1)
		return trace.Path{Path: d.str("path")}
	case tagVariableName:
		d.arity("VariableName", fields, 1)
		return trace.VariableName{Name: d.str("name")}
	case tagVariable:
		d.arity("Variable", fields, 1)
		return trace.Variable{Name: d.str("name")}
	case tagType:
		d.arity("Type", fields, 3)
		return d.typeRecord()
	case tagValue:
		d.arity("Value", fields, 2)
		id := d.variableID()
		return trace.FullValueRecord{VariableID: id, Value: d.value()}
	case tagFunction:
		d.arity("Function", fields, 3)
		pathID := d.pathID()
		line := d.line()
		return trace.FunctionRecord{PathID: pathID, Line: line, Name: d.str("name")}
	case tagStep:
		d.arity("Step", fields, 2)
		pathID := d.pathID()
		return trace.StepRecord{PathID: pathID, Line: d.line()}
	case tagCall:
		d.arity("Call", fields, 2)
		fid := trace.FunctionID(d.id("function_id"))
		return trace.CallRecord{FunctionID: fid, Args: d.args()}
	case tagReturn:
		d.arity("Return", fields, 1)
		return trace.ReturnRecord{ReturnValue: d.value()}
	case tagEvent:
		d.arity("Event", fields, 3)
		kind := d.eventLogKind()
		metadata := d.str("metadata")
		return trace.RecordEvent{Kind: kind, Metadata: metadata, Content: d.str("content")}
	case tagAsm:
		d.arity("Asm", fields, 1)
		return trace.Asm{Instructions: d.strings("instructions")}
	case tagBindVariable:
		d.arity("BindVariable", fields, 2)
		id := d.variableID()
		return trace.BindVariableRecord{VariableID: id, Place: d.place("place")}
	case tagAssignment:
		d.arity("Assignment", fields, 3)
		to := d.variableID()
		passBy := d.passBy()
		return trace.AssignmentRecord{To: to, PassBy: passBy, From: d.rvalue()}
	case tagDropVariables:
		d.arity("DropVariables", fields, 1)
		return trace.DropVariables{VariableIDs: d.variableIDs()}
	case tagCompoundValue:
		d.arity("CompoundValue", fields, 2)
		p := d.place("place")
		return trace.CompoundValueRecord{Place: p, Value: d.value()}
	case tagCellValue:
		d.arity("CellValue", fields, 2)
		p := d.place("place")
		return trace.CellValueRecord{Place: p, Value: d.value()}
	case tagAssignCompoundItem:
		d.arity("AssignCompoundItem", fields, 3)
		p := d.place("place")
		index := d.index()
		return trace.AssignCompoundItemRecord{Place: p, Index: index, ItemPlace: d.place("item_place")}
	case tagAssignCell:
		d.arity("AssignCell", fields, 2)
		p := d.place("place")
		return trace.AssignCellRecord{Place: p, NewValue: d.value()}
	case tagVariableCell:
		d.arity("VariableCell", fields, 2)
		id := d.variableID()
		return trace.VariableCellRecord{VariableID: id, Place: d.place("place")}
	case tagDropVariable:
		d.arity("DropVariable", fields, 1)
		return trace.DropVariable{VariableID: d.variableID()}
	case tagThreadStart:
		d.arity("ThreadStart", fields, 1)
		return trace.ThreadStart{ThreadID: d.threadID()}
	case tagThreadExit:
		d.arity("ThreadExit", fields, 1)
		return trace.ThreadExit{ThreadID: d.threadID()}
	case tagThreadSwitch:
		d.arity("ThreadSwitch", fields, 1)
		return trace.ThreadSwitch{ThreadID: d.threadID()}
	case tagDropLastStep:
		d.arity("DropLastStep", fields, 0)
		return trace.DropLastStep{}
	default:
		d.fail(unknownTag("event", raw))
		return nil
	}
}

func (d *decoder) typeRecord() trace.TypeRecord {
	raw := d.u8("type kind")
	kind := trace.TypeKind(raw)
	if d.err == nil && !kind.Valid() {
		d.fail(unknownTag("type kind", raw))
	}
	langType := d.str("lang_type")
	return trace.TypeRecord{Kind: kind, LangType: langType, SpecificInfo: d.typeInfo()}
}

func (d *decoder) typeInfo() trace.TypeSpecificInfo {
	raw, fields := d.head("specific_info")
	if d.err != nil {
		return nil
	}
	switch infoTag(raw) {
	case tagNoInfo:
		d.arity("specific_info", fields, 0)
		return trace.NoSpecificInfo{}
	case tagStructInfo:
		d.arity("specific_info", fields, 1)
		n := d.arrayLen("fields")
		out := make([]trace.FieldTypeRecord, 0, preallocLen(n))
		for i := 0; i < n && d.err == nil; i++ {
			d.expect("field", 2)
			name := d.str("field name")
			out = append(out, trace.FieldTypeRecord{Name: name, TypeID: d.typeID()})
		}
		return trace.StructInfo{Fields: out}
	case tagPointerInfo:
		d.arity("specific_info", fields, 1)
		return trace.PointerInfo{DereferenceTypeID: d.typeID()}
	default:
		d.fail(unknownTag("specific_info", raw))
		return nil
	}
}

func (d *decoder) eventLogKind() trace.EventLogKind {
	raw := d.u8("event kind")
	kind := trace.EventLogKind(raw)
	if d.err == nil && !kind.Valid() {
		d.fail(unknownTag("event kind", raw))
	}
	return kind
}

func (d *decoder) passBy() trace.PassBy {
	raw := d.u8("pass_by")
	p := trace.PassBy(raw)
	if d.err == nil && !p.Valid() {
		d.fail(unknownTag("pass_by", raw))
	}
	return p
}

func (d *decoder) index() int {
	v := d.i64("index")
	if d.err != nil {
		return 0
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		d.fail(&RangeError{Field: "index", Err: err})
	}
	return n
}

func (d *decoder) rvalue() trace.RValue {
	raw, fields := d.head("rvalue")
	if d.err != nil {
		return nil
	}
	switch rvalueTag(raw) {
	case tagSimple:
		d.arity("rvalue", fields, 1)
		return trace.SimpleRValue{VariableID: d.variableID()}
	case tagCompound:
		d.arity("rvalue", fields, 1)
		return trace.CompoundRValue{VariableIDs: d.variableIDs()}
	default:
		d.fail(unknownTag("rvalue", raw))
		return nil
	}
}

func (d *decoder) strings(what string) []string {
	n := d.arrayLen(what)
	out := make([]string, 0, preallocLen(n))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.str(what))
	}
	return out
}

func (d *decoder) variableIDs() []trace.VariableID {
	n := d.arrayLen("variable_ids")
	out := make([]trace.VariableID, 0, preallocLen(n))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.variableID())
	}
	return out
}

func (d *decoder) args() []trace.FullValueRecord {
	n := d.arrayLen("args")
	out := make([]trace.FullValueRecord, 0, preallocLen(n))
	for i := 0; i < n && d.err == nil; i++ {
		d.expect("arg", 2)
		id := d.variableID()
		out = append(out, trace.FullValueRecord{VariableID: id, Value: d.value()})
	}
	return out
}

func (d *decoder) values(what string) []trace.ValueRecord {
	n := d.arrayLen(what)
	out := make([]trace.ValueRecord, 0, preallocLen(n))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.value())
	}
	return out
}

func (d *decoder) value() trace.ValueRecord {
	raw, fields := d.head("value")
	if d.err != nil {
		return nil
	}
	switch valueTag(raw) {
	case tagInt:
		d.arity("Int", fields, 2)
		i := d.i64("i")
		return trace.IntValue{I: i, TypeID: d.typeID()}
	case tagFloat:
		d.arity("Float", fields, 2)
		f := d.float("f")
		return trace.FloatValue{F: f, TypeID: d.typeID()}
	case tagBool:
		d.arity("Bool", fields, 2)
		b := d.boolean("b")
		return trace.BoolValue{B: b, TypeID: d.typeID()}
	case tagString:
		d.arity("String", fields, 2)
		text := d.str("text")
		return trace.StringValue{Text: text, TypeID: d.typeID()}
	case tagSequence:
		d.arity("Sequence", fields, 3)
		elements := d.values("elements")
		isSlice := d.boolean("is_slice")
		return trace.SequenceValue{Elements: elements, IsSlice: isSlice, TypeID: d.typeID()}
	case tagTuple:
		d.arity("Tuple", fields, 2)
		elements := d.values("elements")
		return trace.TupleValue{Elements: elements, TypeID: d.typeID()}
	case tagStruct:
		d.arity("Struct", fields, 2)
		fieldValues := d.values("field_values")
		return trace.StructValue{FieldValues: fieldValues, TypeID: d.typeID()}
	case tagVariant:
		d.arity("Variant", fields, 3)
		discriminator := d.str("discriminator")
		contents := d.value()
		return trace.VariantValue{Discriminator: discriminator, Contents: contents, TypeID: d.typeID()}
	case tagReference:
		d.arity("Reference", fields, 4)
		dereferenced := d.value()
		address := d.u64("address")
		mutable := d.boolean("mutable")
		return trace.ReferenceValue{Dereferenced: dereferenced, Address: address, Mutable: mutable, TypeID: d.typeID()}
	case tagRaw:
		d.arity("Raw", fields, 2)
		r := d.str("r")
		return trace.RawValue{R: r, TypeID: d.typeID()}
	case tagError:
		d.arity("Error", fields, 2)
		msg := d.str("msg")
		return trace.ErrorValue{Msg: msg, TypeID: d.typeID()}
	case tagNone:
		d.arity("None", fields, 1)
		return trace.NoneValue{TypeID: d.typeID()}
	case tagCell:
		d.arity("Cell", fields, 1)
		return trace.CellValue{Place: d.place("place")}
	case tagBigInt:
		d.arity("BigInt", fields, 3)
		b := d.bytes("b")
		negative := d.boolean("negative")
		return trace.BigIntValue{B: b, Negative: negative, TypeID: d.typeID()}
	default:
		d.fail(unknownTag("value", raw))
		return nil
	}
}
