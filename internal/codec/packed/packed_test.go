package packed

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"codetrace/internal/codec/header"
	"codetrace/internal/testkit"
	"codetrace/internal/trace"
)

func encode(t *testing.T, events []trace.Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, events); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		events []trace.Event
	}{
		{"empty", nil},
		{"sample", testkit.SampleEvents()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encode(t, tt.events)
			got, err := Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if d := testkit.DiffEvents(tt.events, got); d != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestHeaderIsV0(t *testing.T) {
	data := encode(t, nil)
	want := header.Bytes(header.V0)
	if !bytes.Equal(data[:header.Size], want[:]) {
		t.Fatalf("header = % x, want % x", data[:header.Size], want)
	}
}

func TestCharDegradesToRaw(t *testing.T) {
	in := []trace.Event{
		trace.TypeRecord{Kind: trace.TypeKindChar, LangType: "char"},
		trace.VariableName{Name: "c"},
		trace.FullValueRecord{VariableID: 0, Value: trace.CharValue{C: 'é', TypeID: 0}},
	}
	got, err := Decode(bytes.NewReader(encode(t, in)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []trace.Event{in[0], in[1], trace.FullValueRecord{VariableID: 0, Value: trace.RawValue{R: "é", TypeID: 0}}}
	if d := testkit.DiffEvents(want, got); d != "" {
		t.Fatalf("char round trip (-want +got):\n%s", d)
	}
}

func TestHeaderRejection(t *testing.T) {
	good := encode(t, testkit.SampleEvents())
	for _, i := range []int{0, 1, 2, 3, 4, 5, 6, 7} {
		bad := bytes.Clone(good)
		bad[i] ^= 0xff
		if _, err := Decode(bytes.NewReader(bad)); !errors.Is(err, header.ErrInvalidHeader) {
			t.Errorf("corrupted byte %d: err = %v, want ErrInvalidHeader", i, err)
		}
	}
}

func TestRejectsV1Header(t *testing.T) {
	data := encode(t, nil)
	data[5] = byte(header.V1)
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, header.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestIdentifierOutOfRange(t *testing.T) {
	events := []trace.Event{trace.StepRecord{PathID: math.MaxInt64 + 1, Line: 1}}
	err := Encode(&bytes.Buffer{}, events)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("Encode err = %v, want RangeError", err)
	}
	if rangeErr.Field != "path_id" {
		t.Fatalf("RangeError.Field = %q, want path_id", rangeErr.Field)
	}
}

func TestNegativeIdentifierRejected(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeArrayLen(3))
	mustEncode(t, enc.EncodeUint(uint64(tagStep)))
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeInt(-1))
	mustEncode(t, enc.EncodeInt(1))

	_, err := DecodeMessage(buf.Bytes())
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("DecodeMessage err = %v, want RangeError", err)
	}
}

func TestUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeUint(200))

	if _, err := DecodeMessage(buf.Bytes()); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("err = %v, want ErrUnknownTag", err)
	}
}

func TestUnknownValueTag(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeArrayLen(2))
	mustEncode(t, enc.EncodeUint(uint64(tagReturn)))
	mustEncode(t, enc.EncodeArrayLen(1))
	mustEncode(t, enc.EncodeUint(99))

	if _, err := DecodeMessage(buf.Bytes()); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("err = %v, want ErrUnknownTag", err)
	}
}

func TestTruncatedPayload(t *testing.T) {
	data := encode(t, testkit.SampleEvents())
	for _, cut := range []int{header.Size + 1, len(data) / 2, len(data) - 1} {
		if _, err := Decode(bytes.NewReader(data[:cut])); err == nil {
			t.Errorf("Decode of %d/%d bytes succeeded", cut, len(data))
		}
	}
}

func TestTrailingBytes(t *testing.T) {
	data := append(encode(t, nil), 0x01)
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestNilValueRejected(t *testing.T) {
	err := Encode(&bytes.Buffer{}, []trace.Event{trace.ReturnRecord{}})
	if err == nil {
		t.Fatalf("encoding a nil value should fail")
	}
}

func TestSurrogateCharRejected(t *testing.T) {
	for _, c := range []rune{0xD800, 0x110000, -1} {
		err := Encode(&bytes.Buffer{}, []trace.Event{trace.ReturnRecord{ReturnValue: trace.CharValue{C: c}}})
		if !errors.Is(err, ErrInvalidRune) {
			t.Errorf("char %U: err = %v, want ErrInvalidRune", c, err)
		}
	}
}

func TestDeepNesting(t *testing.T) {
	var v trace.ValueRecord = trace.IntValue{I: 1}
	for range 500 {
		v = trace.SequenceValue{Elements: []trace.ValueRecord{v}}
	}
	in := []trace.Event{trace.ReturnRecord{ReturnValue: v}}
	got, err := Decode(bytes.NewReader(encode(t, in)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !trace.EqualEventLists(in, got) {
		t.Fatalf("deep value did not round trip")
	}
}

func mustEncode(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("msgpack: %v", err)
	}
}
