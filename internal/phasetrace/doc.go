// Package phasetrace records the phases a codetrace command goes through
// (load, write, check) as begin/end spans, for diagnosing slow or stuck
// conversions of large traces.
//
// Enable it from the command line:
//
//	codetrace convert --trace=- --trace-level=phase in.json out.bin
//
// Tracer implementations:
//
//   - Nop discards everything and is what FromContext returns by default.
//   - StreamTracer writes each event as it happens.
//   - RingTracer keeps the most recent events for a dump on failure.
//   - MultiTracer fans out to several tracers.
//
// Spans travel with a context:
//
//	ctx = phasetrace.WithTracer(ctx, t)
//	ctx, span := phasetrace.Start(ctx, phasetrace.ScopePhase, "load")
//	defer span.End("")
//
// Phase tracing is unrelated to the trace events in package trace; it
// describes the tool, not the traced program.
package phasetrace
