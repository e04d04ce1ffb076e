package phasetrace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelOff, "OFF": LevelOff, "error": LevelError, "Phase": LevelPhase, "detail": LevelDetail} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("debug"); err == nil {
		t.Errorf("ParseLevel(debug) succeeded")
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Errorf("ParseMode(tape) succeeded")
	}
}

func TestShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeCommand, false},
		{LevelError, ScopePhase, true},
		{LevelError, ScopeFile, false},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)
	ctx, cmd := Start(ctx, ScopeCommand, "check")
	_, file := Start(ctx, ScopeFile, "file:a.json")
	file.WithCount("events", 42).EndErr(errors.New("bad header"))
	cmd.End("")

	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("got %d events, want 4", len(evs))
	}
	if evs[1].ParentID != cmd.ID() || evs[1].Name != "file:a.json" {
		t.Errorf("file begin = %+v, want parent %d", evs[1], cmd.ID())
	}
	end := evs[2]
	if end.Kind != KindSpanEnd || end.Extra["events"] != "42" || end.Detail != "error: bad header" {
		t.Errorf("file end = %+v", end)
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].Seq <= evs[i-1].Seq {
			t.Errorf("seq not increasing at %d: %d after %d", i, evs[i].Seq, evs[i-1].Seq)
		}
	}
}

func TestDisabledSpansAreInert(t *testing.T) {
	ctx, s := Start(context.Background(), ScopeCommand, "convert")
	if s.ID() != 0 || CurrentSpan(ctx) != 0 {
		t.Fatalf("span on Nop has id %d", s.ID())
	}
	if d := s.WithExtra("k", "v").End(""); d != 0 {
		t.Errorf("inert End = %v", d)
	}
	var nilSpan *Span
	nilSpan.End("")

	ring := NewRingTracer(4, LevelPhase)
	_, file := Start(WithTracer(context.Background(), ring), ScopeFile, "file:x")
	file.End("")
	if n := len(ring.Snapshot()); n != 0 {
		t.Errorf("file scope at phase level stored %d events", n)
	}
}

func TestRingWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelPhase)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ring.Emit(&Event{Kind: KindPoint, Scope: ScopePhase, Name: name})
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ""); got != "cde" {
		t.Fatalf("snapshot = %q, want cde", got)
	}
}

func TestRingDumpChrome(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	s := Begin(ring, ScopePhase, "load", 0)
	s.End("done")
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatChrome); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	var doc struct {
		TraceEvents []struct {
			Name string            `json:"name"`
			Ph   string            `json:"ph"`
			Args map[string]string `json:"args"`
		} `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("dump is not JSON: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 2 || doc.TraceEvents[0].Ph != "B" || doc.TraceEvents[1].Ph != "E" {
		t.Fatalf("events = %+v", doc.TraceEvents)
	}
	if doc.TraceEvents[1].Args["detail"] != "done" {
		t.Errorf("end args = %v", doc.TraceEvents[1].Args)
	}
}

func TestStreamFormats(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := func() *Event {
		return &Event{Time: at, Kind: KindSpanEnd, Scope: ScopePhase, SpanID: 2, ParentID: 1, Name: "write", Dur: 1500 * time.Microsecond, Extra: map[string]string{"z": "1", "a": "2"}}
	}

	var text bytes.Buffer
	NewStreamTracer(&text, LevelPhase, FormatText).Emit(ev())
	if got := text.String(); !strings.Contains(got, "  ← write 1.5ms {a=2, z=1}\n") {
		t.Errorf("text = %q", got)
	}

	var nd bytes.Buffer
	NewStreamTracer(&nd, LevelPhase, FormatNDJSON).Emit(ev())
	var rec map[string]any
	if err := json.Unmarshal(nd.Bytes(), &rec); err != nil {
		t.Fatalf("ndjson: %v", err)
	}
	if rec["kind"] != "end" || rec["scope"] != "phase" || rec["dur_ms"] != 1.5 {
		t.Errorf("ndjson = %v", rec)
	}
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestStreamKeepsFirstWriteError(t *testing.T) {
	w := &failWriter{}
	s := NewStreamTracer(w, LevelPhase, FormatText)
	s.Emit(&Event{Kind: KindPoint, Scope: ScopePhase, Name: "a"})
	s.Emit(&Event{Kind: KindPoint, Scope: ScopePhase, Name: "b"})
	if w.n != 1 {
		t.Errorf("writes after a failure = %d, want 1", w.n)
	}
	if err := s.Close(); err == nil {
		t.Fatalf("Close hid the write error")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestNewSelectsTracer(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
		ok   func(Tracer) bool
	}{
		{"off", Config{Level: LevelOff}, func(tr Tracer) bool { return tr == Nop }},
		{"error is ring", Config{Level: LevelError, Mode: ModeStream}, func(tr Tracer) bool { _, ok := tr.(*RingTracer); return ok }},
		{"stream", Config{Level: LevelPhase, Mode: ModeStream, OutputPath: filepath.Join(dir, "s.ndjson")}, func(tr Tracer) bool { _, ok := tr.(*StreamTracer); return ok }},
		{"both", Config{Level: LevelPhase, Mode: ModeBoth, OutputPath: filepath.Join(dir, "b.json")}, func(tr Tracer) bool { _, ok := RingOf(tr); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer tr.Close()
			if !tt.ok(tr) {
				t.Fatalf("New(%+v) = %T", tt.cfg, tr)
			}
		})
	}
	if _, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: filepath.Join(dir, "no", "dir", "t")}); err == nil {
		t.Errorf("New into a missing directory succeeded")
	}
}

func TestChromeFileIsComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.json")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeCommand, "convert", 0).End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string][]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("chrome output is not JSON: %v\n%s", err, raw)
	}
	if len(doc["traceEvents"]) != 2 {
		t.Fatalf("traceEvents = %v", doc["traceEvents"])
	}
}

func TestMultiCopiesEvents(t *testing.T) {
	a, b := NewRingTracer(4, LevelPhase), NewRingTracer(4, LevelPhase)
	m := NewMultiTracer(LevelPhase, a, b)
	ev := &Event{Kind: KindPoint, Scope: ScopePhase, Name: "p"}
	m.Emit(ev)
	if ev.Seq != 0 {
		t.Errorf("caller's event was modified: seq %d", ev.Seq)
	}
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("fan-out missed a tracer")
	}
	if r, ok := m.Ring(); !ok || r != a {
		t.Errorf("Ring() = %p, %v; want %p", r, ok, a)
	}
}

func TestHeartbeat(t *testing.T) {
	ring := NewRingTracer(64, LevelError)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	evs := ring.Snapshot()
	if len(evs) < 2 || evs[0].Kind != KindHeartbeat || evs[0].Detail != "#1" {
		t.Fatalf("heartbeats = %+v", evs)
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil || StartHeartbeat(ring, 0) != nil {
		t.Errorf("disabled heartbeat started")
	}
	var none *Heartbeat
	none.Stop()
}
