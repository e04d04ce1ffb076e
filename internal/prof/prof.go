// Package prof wires runtime profiling behind the --cpuprofile,
// --memprofile and --exectrace flags.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"

	"go.uber.org/multierr"
)

// Options names the output files. Empty paths disable that profile.
type Options struct {
	CPU       string
	Mem       string
	ExecTrace string
}

func (o Options) Enabled() bool {
	return o.CPU != "" || o.Mem != "" || o.ExecTrace != ""
}

// Session holds the profiles started by Start until Stop.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and execution tracing as requested. On
// failure nothing is left running.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("prof: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, fmt.Errorf("prof: start cpu profile: %w", multierr.Append(err, f.Close()))
		}
		s.cpuFile = f
	}
	if opts.ExecTrace != "" {
		f, err := os.Create(opts.ExecTrace)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("prof: %w", err), s.stopCPU())
		}
		if err := rtrace.Start(f); err != nil {
			return nil, multierr.Combine(fmt.Errorf("prof: start trace: %w", err), f.Close(), s.stopCPU())
		}
		s.traceFile = f
	}
	return s, nil
}

// Stop ends the running profiles and writes the heap profile.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	err := multierr.Combine(s.stopTrace(), s.stopCPU())
	if s.opts.Mem != "" {
		err = multierr.Append(err, writeMem(s.opts.Mem))
	}
	return err
}

func (s *Session) stopCPU() error {
	if s.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpuFile.Close()
	s.cpuFile = nil
	return err
}

func (s *Session) stopTrace() error {
	if s.traceFile == nil {
		return nil
	}
	rtrace.Stop()
	err := s.traceFile.Close()
	s.traceFile = nil
	return err
}

func writeMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("prof: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("prof: write heap profile: %w", err)
	}
	return nil
}
