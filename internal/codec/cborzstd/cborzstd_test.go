package cborzstd

import (
	"bytes"
	"errors"
	"testing"

	"codetrace/internal/codec/header"
	"codetrace/internal/codec/wire"
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

func decode(t *testing.T, data []byte) []trace.Event {
	t.Helper()
	got, err := Decode(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	events := append(testkit.SampleEvents(), trace.FullValueRecord{
		VariableID: 1,
		Value:      trace.CharValue{C: 'x', TypeID: 1},
	})
	if d := testkit.DiffEvents(events, decode(t, encode(t, events))); d != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestEmptyStream(t *testing.T) {
	data := encode(t, nil)
	want := header.Bytes(header.V1)
	if !bytes.Equal(data[:header.Size], want[:]) {
		t.Fatalf("header = % x, want % x", data[:header.Size], want)
	}
	if got := decode(t, data); len(got) != 0 {
		t.Fatalf("decoded %d events from an empty stream", len(got))
	}
}

func TestSequenceOrderAndSliceFlag(t *testing.T) {
	seq := trace.SequenceValue{
		Elements: []trace.ValueRecord{trace.IntValue{I: 1, TypeID: 0}, trace.IntValue{I: 2, TypeID: 0}},
		IsSlice:  true,
		TypeID:   0,
	}
	got := decode(t, encode(t, []trace.Event{trace.ReturnRecord{ReturnValue: seq}}))
	if len(got) != 1 {
		t.Fatalf("decoded %d events, want 1", len(got))
	}
	ret, ok := got[0].(trace.ReturnRecord)
	if !ok {
		t.Fatalf("event = %T, want ReturnRecord", got[0])
	}
	s, ok := ret.ReturnValue.(trace.SequenceValue)
	if !ok || !s.IsSlice || len(s.Elements) != 2 {
		t.Fatalf("value = %#v", ret.ReturnValue)
	}
	if s.Elements[0].(trace.IntValue).I != 1 || s.Elements[1].(trace.IntValue).I != 2 {
		t.Fatalf("element order lost: %#v", s.Elements)
	}
}

func TestBigIntSignAndMagnitude(t *testing.T) {
	v := trace.BigIntValue{B: []byte{0x01, 0x00}, Negative: true, TypeID: 0}
	got := decode(t, encode(t, []trace.Event{trace.ReturnRecord{ReturnValue: v}}))
	b := got[0].(trace.ReturnRecord).ReturnValue.(trace.BigIntValue)
	if !b.Negative || !bytes.Equal(b.B, []byte{0x01, 0x00}) {
		t.Fatalf("BigInt = %#v", b)
	}
}

func TestStreamingEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	events := testkit.SampleEvents()
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := enc.Encode(trace.DropLastStep{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Encode after Close = %v, want ErrClosed", err)
	}
	if d := testkit.DiffEvents(events, decode(t, buf.Bytes())); d != "" {
		t.Fatalf("streamed events mismatch:\n%s", d)
	}
}

func TestHeaderRejection(t *testing.T) {
	good := encode(t, testkit.SampleEvents())
	for i := range header.Size {
		bad := bytes.Clone(good)
		bad[i] ^= 0x5a
		if _, err := Decode(bytes.NewReader(bad), int64(len(bad))); !errors.Is(err, header.ErrInvalidHeader) {
			t.Errorf("corrupted byte %d: err = %v, want ErrInvalidHeader", i, err)
		}
	}
}

func TestRejectsV0Header(t *testing.T) {
	data := encode(t, nil)
	data[5] = byte(header.V0)
	if _, err := Decode(bytes.NewReader(data), int64(len(data))); !errors.Is(err, header.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestTruncated(t *testing.T) {
	data := encode(t, testkit.SampleEvents())
	if _, err := Decode(bytes.NewReader(data[:4]), 4); !errors.Is(err, header.ErrTruncated) {
		t.Fatalf("short header err = %v, want ErrTruncated", err)
	}
	cut := data[:len(data)-3]
	if _, err := Decode(bytes.NewReader(cut), int64(len(cut))); err == nil {
		t.Fatalf("truncated stream decoded without error")
	}
}

func TestUnclosedStreamIsUnreadable(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.Encode(trace.Path{Path: "/p"}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err == nil && len(got) == 1 {
		t.Fatalf("stream without Close decoded completely")
	}
}

func TestInvalidTextNotWritten(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.Encode(trace.ReturnRecord{ReturnValue: trace.StringValue{Text: "a\xffb"}}); !errors.Is(err, wire.ErrInvalidText) {
		t.Fatalf("Encode = %v, want ErrInvalidText", err)
	}
	if err := enc.Encode(trace.ReturnRecord{ReturnValue: trace.CharValue{C: 0xD800}}); !errors.Is(err, wire.ErrInvalidText) {
		t.Fatalf("Encode of surrogate = %v, want ErrInvalidText", err)
	}
	if err := enc.Encode(trace.DropLastStep{}); err != nil {
		t.Fatalf("Encode after rejection: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got := decode(t, buf.Bytes())
	if d := testkit.DiffEvents([]trace.Event{trace.DropLastStep{}}, got); d != "" {
		t.Fatalf("rejected events reached the stream:\n%s", d)
	}
}
