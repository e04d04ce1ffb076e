package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"codetrace/internal/testkit"
	"codetrace/internal/trace"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	events := append(testkit.SampleEvents(), trace.FullValueRecord{
		VariableID: 0,
		Value:      trace.CharValue{C: '✓', TypeID: 1},
	})
	envs, err := FromEvents(events)
	if err != nil {
		t.Fatalf("FromEvents: %v", err)
	}
	got, err := ToEvents(envs)
	if err != nil {
		t.Fatalf("ToEvents: %v", err)
	}
	if d := testkit.DiffEvents(events, got); d != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestEnvelopeShape(t *testing.T) {
	tests := []struct {
		name string
		ev   trace.Event
		want string
	}{
		{"step", trace.StepRecord{PathID: 0, Line: 3}, `{"Step":{"path_id":0,"line":3}}`},
		{"path", trace.Path{Path: "/a"}, `{"Path":"/a"}`},
		{
			"int value",
			trace.FullValueRecord{VariableID: 2, Value: trace.IntValue{I: 0, TypeID: 1}},
			`{"Value":{"variable_id":2,"value":{"kind":"Int","i":0,"type_id":1}}}`,
		},
		{"drop last step", trace.DropLastStep{}, `{"DropLastStep":{}}`},
		{
			"assignment",
			trace.AssignmentRecord{To: 1, PassBy: trace.PassByValue, From: trace.SimpleRValue{VariableID: 0}},
			`{"Assignment":{"to":1,"pass_by":"Value","from":{"kind":"Simple","variable_id":0}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := FromEvent(tt.ev)
			if err != nil {
				t.Fatalf("FromEvent: %v", err)
			}
			b, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Fatalf("json = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestToEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"empty envelope", `{}`, ErrEnvelope},
		{"two variants", `{"Path":"a","VariableName":"b"}`, ErrEnvelope},
		{"missing line", `{"Step":{"path_id":0}}`, ErrMissingField},
		{"missing value", `{"Return":{}}`, ErrMissingField},
		{"missing type id", `{"Return":{"return_value":{"kind":"Int","i":1}}}`, ErrMissingField},
		{"unknown value kind", `{"Return":{"return_value":{"kind":"Complex","type_id":0}}}`, ErrUnknownKind},
		{"nested unknown kind", `{"Return":{"return_value":{"kind":"Tuple","type_id":0,"elements":[{"kind":"Nope"}]}}}`, ErrUnknownKind},
		{"bad type kind", `{"Type":{"kind":200,"lang_type":"x","specific_info":{"kind":"None"}}}`, ErrUnknownKind},
		{"bad pass by", `{"Assignment":{"to":0,"pass_by":"Move","from":{"kind":"Simple","variable_id":0}}}`, ErrUnknownKind},
		{"bad rvalue", `{"Assignment":{"to":0,"pass_by":"Value","from":{"kind":"Other"}}}`, ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Event
			if err := json.Unmarshal([]byte(tt.in), &env); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if _, err := ToEvent(env); !errors.Is(err, tt.wantErr) {
				t.Fatalf("ToEvent err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCharMustBeOneRune(t *testing.T) {
	for _, c := range []string{"", "ab"} {
		s := c
		if _, err := ToValue(Value{Kind: "Char", C: &s, TypeID: ptr(uint64(0))}); err == nil {
			t.Errorf("Char %q accepted", c)
		}
	}
}

func TestFromValueNil(t *testing.T) {
	if _, err := FromEvent(trace.ReturnRecord{}); err == nil {
		t.Fatalf("nil return value should fail")
	}
}

func TestInvalidTextRejected(t *testing.T) {
	tests := []struct {
		name  string
		ev    trace.Event
		field string
	}{
		{"path", trace.Path{Path: "/src/\xff.py"}, "path"},
		{"variable name", trace.VariableName{Name: "a\xc3"}, "name"},
		{"string value", trace.ReturnRecord{ReturnValue: trace.StringValue{Text: "a\xffb"}}, "text"},
		{"nested raw", trace.ReturnRecord{ReturnValue: trace.TupleValue{Elements: []trace.ValueRecord{
			trace.IntValue{I: 1}, trace.RawValue{R: "\x80"},
		}}}, "r"},
		{"variant discriminator", trace.ReturnRecord{ReturnValue: trace.VariantValue{Discriminator: "\xfe", Contents: trace.None}}, "discriminator"},
		{"error message", trace.ReturnRecord{ReturnValue: trace.ErrorValue{Msg: "\xff"}}, "msg"},
		{"surrogate char", trace.ReturnRecord{ReturnValue: trace.CharValue{C: 0xD800}}, "c"},
		{"char past max rune", trace.ReturnRecord{ReturnValue: trace.CharValue{C: 0x110000}}, "c"},
		{"event content", trace.RecordEvent{Kind: trace.EventLogWrite, Content: "\xff"}, "content"},
		{"event metadata", trace.RecordEvent{Kind: trace.EventLogWrite, Metadata: "\xff"}, "metadata"},
		{"asm", trace.Asm{Instructions: []string{"nop", "\xff"}}, "instructions"},
		{"lang type", trace.TypeRecord{Kind: trace.TypeKindInt, LangType: "\xff"}, "lang_type"},
		{"struct field", trace.TypeRecord{Kind: trace.TypeKindStruct, LangType: "P", SpecificInfo: trace.StructInfo{
			Fields: []trace.FieldTypeRecord{{Name: "\xff", TypeID: 0}},
		}}, "field name"},
		{"function name", trace.FunctionRecord{Name: "f\xff"}, "name"},
		{"call argument", trace.CallRecord{Args: []trace.FullValueRecord{{Value: trace.StringValue{Text: "\xff"}}}}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEvent(tt.ev)
			if !errors.Is(err, ErrInvalidText) {
				t.Fatalf("err = %v, want ErrInvalidText", err)
			}
			var te *TextError
			if !errors.As(err, &te) || te.Field != tt.field {
				t.Fatalf("err = %v, want TextError for %q", err, tt.field)
			}
		})
	}
}

func TestValidTextAccepted(t *testing.T) {
	evs := []trace.Event{
		trace.Path{Path: "/src/naïve.py"},
		trace.ReturnRecord{ReturnValue: trace.StringValue{Text: "日本語"}},
		trace.ReturnRecord{ReturnValue: trace.CharValue{C: 0x10FFFF}},
		trace.ReturnRecord{ReturnValue: trace.StringValue{Text: ""}},
	}
	if _, err := FromEvents(evs); err != nil {
		t.Fatalf("FromEvents: %v", err)
	}
	if _, err := FromValue(trace.RawValue{R: "\xff"}); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("FromValue err = %v, want ErrInvalidText", err)
	}
}
