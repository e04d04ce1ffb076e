package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"codetrace/internal/observ"
	"codetrace/internal/phasetrace"
)

// phaseTracing is the tracer state of one invocation.
type phaseTracing struct {
	cfg       phasetrace.Config
	tracer    phasetrace.Tracer
	command   *phasetrace.Span
	heartbeat *phasetrace.Heartbeat
}

// setupTracing reads the --trace* flags, falling back to [trace] in the
// config, and attaches the tracer and a command span to cmd's context.
func setupTracing(cmd *cobra.Command) (*phaseTracing, error) {
	flags := cmd.Root().PersistentFlags()

	output := current.cfg.Trace.Output
	if flags.Changed("trace") {
		var err error
		if output, err = flags.GetString("trace"); err != nil {
			return nil, fmt.Errorf("failed to get trace flag: %w", err)
		}
	}
	levelStr := current.cfg.Trace.Level
	if flags.Changed("trace-level") {
		var err error
		if levelStr, err = flags.GetString("trace-level"); err != nil {
			return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
		}
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := phasetrace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// --trace alone means phase level.
	if level == phasetrace.LevelOff && output != "" && !flags.Changed("trace-level") {
		level = phasetrace.LevelPhase
	}
	mode, err := phasetrace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	pt := &phaseTracing{cfg: phasetrace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	}}
	if pt.tracer, err = phasetrace.New(pt.cfg); err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, pt.command = phasetrace.Start(phasetrace.WithTracer(ctx, pt.tracer), phasetrace.ScopeCommand, cmd.Name())
	cmd.SetContext(ctx)
	pt.heartbeat = phasetrace.StartHeartbeat(pt.tracer, heartbeat)
	return pt, nil
}

// finish ends the command span and closes the tracer. When the command
// failed and a ring buffer holds events, the ring is dumped to the trace
// output, or to stderr if tracing only went to the ring.
func (pt *phaseTracing) finish(cmdErr error, stderr io.Writer) error {
	if pt == nil {
		return nil
	}
	pt.heartbeat.Stop()
	pt.command.EndErr(cmdErr)

	var err error
	if ring, ok := phasetrace.RingOf(pt.tracer); ok && cmdErr != nil && pt.cfg.Mode != phasetrace.ModeBoth {
		err = multierr.Append(err, dumpRing(ring, pt.cfg, stderr))
	}
	err = multierr.Append(err, pt.tracer.Flush())
	err = multierr.Append(err, pt.tracer.Close())
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	return nil
}

func dumpRing(ring *phasetrace.RingTracer, cfg phasetrace.Config, stderr io.Writer) (err error) {
	w := stderr
	if cfg.OutputPath != "" && cfg.OutputPath != "-" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to open trace output: %w", err)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		w = f
	}
	format := cfg.Format
	if format == phasetrace.FormatAuto {
		format = phasetrace.FormatFromPath(cfg.OutputPath)
	}
	return ring.Dump(w, format)
}

// trackPhase runs fn as a timed phase and as a phase span on ctx's
// tracer. fn reports the number of events it handled.
func trackPhase(ctx context.Context, timer *observ.Timer, name string, fn func() (int, error)) error {
	_, span := phasetrace.Start(ctx, phasetrace.ScopePhase, name)
	var n int
	err := timer.Track(name, func() (int, error) {
		var err error
		n, err = fn()
		return n, err
	})
	span.WithCount("events", n).EndErr(err)
	return err
}
