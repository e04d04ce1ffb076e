package packed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"codetrace/internal/codec/header"
	"codetrace/internal/trace"
)

var errNilValue = errors.New("packed: nil value")

// Encode writes the V0 header followed by events as one message.
func Encode(w io.Writer, events []trace.Event) error {
	bw := bufio.NewWriter(w)
	if err := header.Write(bw, header.V0); err != nil {
		return err
	}
	e := &encoder{enc: msgpack.NewEncoder(bw)}
	e.arr(len(events))
	for _, ev := range events {
		if e.err != nil {
			break
		}
		e.event(ev)
	}
	if e.err != nil {
		return e.err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("packed: flush: %w", err)
	}
	return nil
}

// encoder keeps the first failure; later writes become no-ops.
type encoder struct {
	enc *msgpack.Encoder
	err error
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) check(err error) {
	if err != nil {
		e.fail(fmt.Errorf("packed: encode: %w", err))
	}
}

func (e *encoder) arr(n int) {
	if e.err == nil {
		e.check(e.enc.EncodeArrayLen(n))
	}
}

func (e *encoder) u64(v uint64) {
	if e.err == nil {
		e.check(e.enc.EncodeUint(v))
	}
}

func (e *encoder) i64(v int64) {
	if e.err == nil {
		e.check(e.enc.EncodeInt(v))
	}
}

func (e *encoder) str(s string) {
	if e.err == nil {
		e.check(e.enc.EncodeString(s))
	}
}

func (e *encoder) boolean(b bool) {
	if e.err == nil {
		e.check(e.enc.EncodeBool(b))
	}
}

func (e *encoder) float(f float64) {
	if e.err == nil {
		e.check(e.enc.EncodeFloat64(f))
	}
}

func (e *encoder) bytes(b []byte) {
	if e.err == nil {
		e.check(e.enc.EncodeBytes(b))
	}
}

// head starts a tagged union array with fields entries after the tag.
func (e *encoder) head(tag uint8, fields int) {
	e.arr(fields + 1)
	e.u64(uint64(tag))
}

// id writes an identifier wrapper, narrowing to int64.
func (e *encoder) id(field string, v uint64) {
	if e.err != nil {
		return
	}
	n, err := safecast.Conv[int64](v)
	if err != nil {
		e.fail(&RangeError{Field: field, Err: err})
		return
	}
	e.arr(1)
	e.i64(n)
}

func (e *encoder) place(p trace.Place) {
	e.arr(1)
	e.i64(int64(p))
}

func (e *encoder) typeID(id trace.TypeID) { e.id("type_id", uint64(id)) }

func (e *encoder) variableID(id trace.VariableID) { e.id("variable_id", uint64(id)) }

func (e *encoder) event(ev trace.Event) {
	switch ev := ev.(type) {
	case trace.Path:
		e.head(uint8(tagPath), 1)
		e.str(ev.Path)
	case trace.VariableName:
		e.head(uint8(tagVariableName), 1)
		e.str(ev.Name)
	case trace.Variable:
		e.head(uint8(tagVariable), 1)
		e.str(ev.Name)
	case trace.TypeRecord:
		e.head(uint8(tagType), 3)
		e.u64(uint64(ev.Kind))
		e.str(ev.LangType)
		e.typeInfo(trace.SpecificInfoOf(ev))
	case trace.FullValueRecord:
		e.head(uint8(tagValue), 2)
		e.variableID(ev.VariableID)
		e.value(ev.Value)
	case trace.FunctionRecord:
		e.head(uint8(tagFunction), 3)
		e.id("path_id", uint64(ev.PathID))
		e.i64(int64(ev.Line))
		e.str(ev.Name)
	case trace.StepRecord:
		e.head(uint8(tagStep), 2)
		e.id("path_id", uint64(ev.PathID))
		e.i64(int64(ev.Line))
	case trace.CallRecord:
		e.head(uint8(tagCall), 2)
		e.id("function_id", uint64(ev.FunctionID))
		e.arr(len(ev.Args))
		for _, arg := range ev.Args {
			e.arr(2)
			e.variableID(arg.VariableID)
			e.value(arg.Value)
		}
	case trace.ReturnRecord:
		e.head(uint8(tagReturn), 1)
		e.value(ev.ReturnValue)
	case trace.RecordEvent:
		e.head(uint8(tagEvent), 3)
		e.u64(uint64(ev.Kind))
		e.str(ev.Metadata)
		e.str(ev.Content)
	case trace.Asm:
		e.head(uint8(tagAsm), 1)
		e.arr(len(ev.Instructions))
		for _, ins := range ev.Instructions {
			e.str(ins)
		}
	case trace.BindVariableRecord:
		e.head(uint8(tagBindVariable), 2)
		e.variableID(ev.VariableID)
		e.place(ev.Place)
	case trace.AssignmentRecord:
		e.head(uint8(tagAssignment), 3)
		e.variableID(ev.To)
		e.u64(uint64(ev.PassBy))
		e.rvalue(ev.From)
	case trace.DropVariables:
		e.head(uint8(tagDropVariables), 1)
		e.variableIDs(ev.VariableIDs)
	case trace.CompoundValueRecord:
		e.head(uint8(tagCompoundValue), 2)
		e.place(ev.Place)
		e.value(ev.Value)
	case trace.CellValueRecord:
		e.head(uint8(tagCellValue), 2)
		e.place(ev.Place)
		e.value(ev.Value)
	case trace.AssignCompoundItemRecord:
		e.head(uint8(tagAssignCompoundItem), 3)
		e.place(ev.Place)
		e.i64(int64(ev.Index))
		e.place(ev.ItemPlace)
	case trace.AssignCellRecord:
		e.head(uint8(tagAssignCell), 2)
		e.place(ev.Place)
		e.value(ev.NewValue)
	case trace.VariableCellRecord:
		e.head(uint8(tagVariableCell), 2)
		e.variableID(ev.VariableID)
		e.place(ev.Place)
	case trace.DropVariable:
		e.head(uint8(tagDropVariable), 1)
		e.variableID(ev.VariableID)
	case trace.ThreadStart:
		e.head(uint8(tagThreadStart), 1)
		e.id("thread_id", uint64(ev.ThreadID))
	case trace.ThreadExit:
		e.head(uint8(tagThreadExit), 1)
		e.id("thread_id", uint64(ev.ThreadID))
	case trace.ThreadSwitch:
		e.head(uint8(tagThreadSwitch), 1)
		e.id("thread_id", uint64(ev.ThreadID))
	case trace.DropLastStep:
		e.head(uint8(tagDropLastStep), 0)
	default:
		e.fail(fmt.Errorf("packed: unsupported event %T", ev))
	}
}

func (e *encoder) typeInfo(info trace.TypeSpecificInfo) {
	switch info := info.(type) {
	case trace.NoSpecificInfo:
		e.head(uint8(tagNoInfo), 0)
	case trace.StructInfo:
		e.head(uint8(tagStructInfo), 1)
		e.arr(len(info.Fields))
		for _, f := range info.Fields {
			e.arr(2)
			e.str(f.Name)
			e.typeID(f.TypeID)
		}
	case trace.PointerInfo:
		e.head(uint8(tagPointerInfo), 1)
		e.typeID(info.DereferenceTypeID)
	default:
		e.fail(fmt.Errorf("packed: unsupported type info %T", info))
	}
}

func (e *encoder) rvalue(rv trace.RValue) {
	switch rv := rv.(type) {
	case trace.SimpleRValue:
		e.head(uint8(tagSimple), 1)
		e.variableID(rv.VariableID)
	case trace.CompoundRValue:
		e.head(uint8(tagCompound), 1)
		e.variableIDs(rv.VariableIDs)
	default:
		e.fail(fmt.Errorf("packed: unsupported rvalue %T", rv))
	}
}

func (e *encoder) variableIDs(ids []trace.VariableID) {
	e.arr(len(ids))
	for _, id := range ids {
		e.variableID(id)
	}
}

func (e *encoder) values(vs []trace.ValueRecord) {
	e.arr(len(vs))
	for _, v := range vs {
		e.value(v)
	}
}

func (e *encoder) value(v trace.ValueRecord) {
	if e.err != nil {
		return
	}
	switch v := v.(type) {
	case trace.IntValue:
		e.head(uint8(tagInt), 2)
		e.i64(v.I)
		e.typeID(v.TypeID)
	case trace.FloatValue:
		e.head(uint8(tagFloat), 2)
		e.float(v.F)
		e.typeID(v.TypeID)
	case trace.BoolValue:
		e.head(uint8(tagBool), 2)
		e.boolean(v.B)
		e.typeID(v.TypeID)
	case trace.StringValue:
		e.head(uint8(tagString), 2)
		e.str(v.Text)
		e.typeID(v.TypeID)
	case trace.SequenceValue:
		e.head(uint8(tagSequence), 3)
		e.values(v.Elements)
		e.boolean(v.IsSlice)
		e.typeID(v.TypeID)
	case trace.TupleValue:
		e.head(uint8(tagTuple), 2)
		e.values(v.Elements)
		e.typeID(v.TypeID)
	case trace.StructValue:
		e.head(uint8(tagStruct), 2)
		e.values(v.FieldValues)
		e.typeID(v.TypeID)
	case trace.VariantValue:
		e.head(uint8(tagVariant), 3)
		e.str(v.Discriminator)
		e.value(v.Contents)
		e.typeID(v.TypeID)
	case trace.ReferenceValue:
		e.head(uint8(tagReference), 4)
		e.value(v.Dereferenced)
		e.u64(v.Address)
		e.boolean(v.Mutable)
		e.typeID(v.TypeID)
	case trace.RawValue:
		e.head(uint8(tagRaw), 2)
		e.str(v.R)
		e.typeID(v.TypeID)
	case trace.ErrorValue:
		e.head(uint8(tagError), 2)
		e.str(v.Msg)
		e.typeID(v.TypeID)
	case trace.NoneValue:
		e.head(uint8(tagNone), 1)
		e.typeID(v.TypeID)
	case trace.CellValue:
		e.head(uint8(tagCell), 1)
		e.place(v.Place)
	case trace.BigIntValue:
		e.head(uint8(tagBigInt), 3)
		e.bytes(v.B)
		e.boolean(v.Negative)
		e.typeID(v.TypeID)
	case trace.CharValue:
		// No Char case in this schema; readers get it back as Raw.
		if !utf8.ValidRune(v.C) {
			e.fail(fmt.Errorf("%w: char %U", ErrInvalidRune, v.C))
		}
		e.head(uint8(tagRaw), 2)
		e.str(string(v.C))
		e.typeID(v.TypeID)
	case nil:
		e.fail(errNilValue)
	default:
		e.fail(fmt.Errorf("packed: unsupported value %T", v))
	}
}
