package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codetrace/internal/observ"
	"codetrace/internal/phasetrace"
	"codetrace/internal/testkit"
	"codetrace/internal/trace"
	"codetrace/internal/traceio"
	"codetrace/internal/ui"
	"codetrace/internal/version"
)

func TestReadColorMode(t *testing.T) {
	cases := map[string]colorMode{"": colorModeAuto, "AUTO": colorModeAuto, "on": colorModeOn, " off ": colorModeOff}
	for in, want := range cases {
		got, err := readColorMode(in)
		if err != nil || got != want {
			t.Errorf("readColorMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readColorMode("rainbow"); err == nil {
		t.Errorf("readColorMode(rainbow) accepted")
	}
}

func TestReadUIMode(t *testing.T) {
	if m, err := readUIMode("ON"); err != nil || m != uiModeOn {
		t.Errorf("readUIMode(ON) = %q, %v", m, err)
	}
	if shouldUseTUI(uiModeOff) || !shouldUseTUI(uiModeOn) {
		t.Errorf("explicit modes ignored")
	}
	if _, err := readUIMode("fancy"); err == nil {
		t.Errorf("readUIMode(fancy) accepted")
	}
}

func TestResolveFormats(t *testing.T) {
	v0 := traceio.FormatBinaryV0
	cases := []struct {
		name     string
		flag     string
		path     string
		fallback *traceio.Format
		want     traceio.Format
		wantErr  bool
	}{
		{name: "flag wins", flag: "binary-v0", path: "t.json", want: traceio.FormatBinaryV0},
		{name: "json extension", path: "out/t.json", want: traceio.FormatJSON},
		{name: "bin extension", path: "t.bin", fallback: &v0, want: traceio.FormatBinary},
		{name: "config fallback", path: "t.trace", fallback: &v0, want: traceio.FormatBinaryV0},
		{name: "no fallback", path: "t.trace", wantErr: true},
		{name: "bad flag", flag: "xml", path: "t.json", wantErr: true},
	}
	for _, tc := range cases {
		got, err := resolveOutputFormat(tc.flag, tc.path, tc.fallback)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %v", tc.name, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: got %v, %v; want %v", tc.name, got, err, tc.want)
		}
	}
}

func writeTrace(t *testing.T, path string, format traceio.Format, events []trace.Event) {
	t.Helper()
	if err := writeEvents(path, format, events, zap.NewNop()); err != nil {
		t.Fatalf("writeEvents(%s): %v", path, err)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.json")
	writeTrace(t, src, traceio.FormatJSON, testkit.SampleEvents())

	timer := observ.NewTimer()
	v0 := filepath.Join(dir, "mid.trace")
	if _, err := convertFile(context.Background(), timer, zap.NewNop(), src, traceio.FormatJSON, v0, traceio.FormatBinaryV0); err != nil {
		t.Fatalf("json -> v0: %v", err)
	}
	v1 := filepath.Join(dir, "out.bin")
	n, err := convertFile(context.Background(), timer, zap.NewNop(), v0, traceio.FormatBinaryV0, v1, traceio.FormatBinary)
	if err != nil {
		t.Fatalf("v0 -> v1: %v", err)
	}
	if n != len(testkit.SampleEvents()) {
		t.Errorf("converted %d events", n)
	}
	if len(timer.Phases()) != 4 {
		t.Errorf("phases = %d, want 4", len(timer.Phases()))
	}

	in, err := resolveInputFormat("", v0)
	if err != nil || in != traceio.FormatBinaryV0 {
		t.Errorf("header detection of %s = %v, %v", v0, in, err)
	}
	got, err := traceio.Load(v1, traceio.FormatBinary)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := testkit.DiffEvents(testkit.SampleEvents(), got); d != "" {
		t.Fatalf("converted stream (-want +got):\n%s", d)
	}

	if _, err := convertFile(context.Background(), timer, zap.NewNop(), filepath.Join(dir, "missing.json"), traceio.FormatJSON, v1, traceio.FormatBinary); err == nil {
		t.Errorf("missing input accepted")
	}
}

func TestConvertFileTracesPhases(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.json")
	writeTrace(t, src, traceio.FormatJSON, testkit.SampleEvents())

	ring := phasetrace.NewRingTracer(64, phasetrace.LevelPhase)
	ctx, cmdSpan := phasetrace.Start(phasetrace.WithTracer(context.Background(), ring), phasetrace.ScopeCommand, "convert")
	if _, err := convertFile(ctx, observ.NewTimer(), zap.NewNop(), src, traceio.FormatJSON, filepath.Join(dir, "out.bin"), traceio.FormatBinary); err != nil {
		t.Fatalf("convertFile: %v", err)
	}
	cmdSpan.End("")

	var ends []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind != phasetrace.KindSpanEnd {
			continue
		}
		ends = append(ends, ev.Name)
		if ev.Scope == phasetrace.ScopePhase {
			if ev.ParentID != cmdSpan.ID() {
				t.Errorf("%s parent = %d, want %d", ev.Name, ev.ParentID, cmdSpan.ID())
			}
			if want := strconv.Itoa(len(testkit.SampleEvents())); ev.Extra["events"] != want {
				t.Errorf("%s events = %q, want %s", ev.Name, ev.Extra["events"], want)
			}
		}
	}
	if strings.Join(ends, ",") != "load,write,convert" {
		t.Fatalf("span ends = %v", ends)
	}
}

func TestTracingDumpsRingOnFailure(t *testing.T) {
	cfg := phasetrace.Config{Level: phasetrace.LevelError, Mode: phasetrace.ModeStream}
	tracer, err := phasetrace.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	pt := &phaseTracing{cfg: cfg, tracer: tracer, command: phasetrace.Begin(tracer, phasetrace.ScopeCommand, "check", 0)}
	var out bytes.Buffer
	if err := pt.finish(errors.New("2 of 3 files failed"), &out); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "→ check") || !strings.Contains(got, "error: 2 of 3 files failed") {
		t.Fatalf("ring dump = %q", got)
	}

	out.Reset()
	pt = &phaseTracing{cfg: cfg, tracer: tracer, command: phasetrace.Begin(tracer, phasetrace.ScopeCommand, "check", 0)}
	if err := pt.finish(nil, &out); err != nil || out.Len() != 0 {
		t.Fatalf("successful command dumped %q, err %v", out.String(), err)
	}
	var none *phaseTracing
	if err := none.finish(errors.New("x"), &out); err != nil {
		t.Fatalf("nil tracing finish: %v", err)
	}
}

func TestFormatTrace(t *testing.T) {
	dir := t.TempDir()
	events := []trace.Event{
		trace.Path{Path: "/home/u/app/src/main.nr"},
		trace.StepRecord{PathID: 0, Line: 3},
	}
	want := "[\n  { \"Path\": \"<relative-to-this>/src/main.nr\" },\n  { \"Step\": { \"path_id\": 0, \"line\": 3 } }\n]\n"

	for _, format := range []traceio.Format{traceio.FormatJSON, traceio.FormatBinary} {
		src := filepath.Join(dir, "src."+format.String())
		dst := filepath.Join(dir, "dst."+format.String()+".json")
		writeTrace(t, src, format, events)
		if err := formatTrace(src, dst, true); err != nil {
			t.Fatalf("formatTrace(%s): %v", format, err)
		}
		got, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s output:\n%s\nwant:\n%s", format, got, want)
		}
	}
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.bin")
	writeTrace(t, good, traceio.FormatBinary, testkit.SampleEvents())
	bad := filepath.Join(dir, "bad.json")
	writeTrace(t, bad, traceio.FormatJSON, []trace.Event{trace.StepRecord{PathID: 4, Line: 1}})
	garbage := filepath.Join(dir, "garbage.bin")
	if err := os.WriteFile(garbage, []byte("not a trace"), 0o644); err != nil {
		t.Fatal(err)
	}

	var seen []ui.FileEvent
	var mu sync.Mutex
	report := func(ev ui.FileEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev)
	}
	results, err := checkFiles(context.Background(), []string{good, bad, garbage}, "", 2, zap.NewNop(), report)
	if err != nil {
		t.Fatalf("checkFiles: %v", err)
	}
	if results[0].Err != nil || results[0].Events != len(testkit.SampleEvents()) {
		t.Errorf("good file = %+v", results[0])
	}
	var defErr *trace.DefinitionError
	if !errors.As(results[1].Err, &defErr) || defErr.Namespace != trace.NamespacePath {
		t.Errorf("bad file err = %v", results[1].Err)
	}
	if results[2].Err == nil {
		t.Errorf("garbage file passed")
	}
	final := map[string]ui.Status{}
	for _, ev := range seen {
		final[ev.Path] = ev.Status
	}
	if len(seen) != 8 || final[good] != ui.StatusDone || final[bad] != ui.StatusFailed || final[garbage] != ui.StatusFailed {
		t.Errorf("progress events = %+v", seen)
	}

	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
	var out bytes.Buffer
	if failed := renderCheckResults(&out, results); failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if !strings.HasPrefix(out.String(), "ok   "+good) {
		t.Errorf("report:\n%s", out.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := checkFiles(ctx, []string{good}, "", 1, zap.NewNop(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled check err = %v", err)
	}
}

func TestRenderVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersion(&buf, "json", version.Current()); err != nil {
		t.Fatal(err)
	}
	var info version.Info
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if len(info.FormatVersions) != 2 {
		t.Errorf("format versions = %v", info.FormatVersions)
	}
	if err := renderVersion(&buf, "yaml", version.Current()); err == nil {
		t.Errorf("yaml format accepted")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, zapcore.InfoLevel, false)
	logger.Debug("hidden")
	logger.Info("shown", zap.Int("events", 3))
	_ = logger.Sync()
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "INFO\tshown") || !strings.Contains(out, `"events": 3`) {
		t.Errorf("log output = %q", out)
	}
}
