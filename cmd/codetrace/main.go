package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"codetrace/internal/config"
	"codetrace/internal/observ"
	"codetrace/internal/phasetrace"
	"codetrace/internal/prof"
	"codetrace/internal/version"
)

// session is the per-invocation state built by the root pre-run hook.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	timer   *observ.Timer
	profile *prof.Session
	tracing *phaseTracing
}

var current = session{cfg: config.Default(), logger: zap.NewNop()}

var rootCmd = &cobra.Command{
	Use:               "codetrace",
	Short:             "Inspect and convert CodeTracer trace files",
	Long:              `codetrace converts, formats and checks execution traces in the JSON and binary trace formats`,
	PersistentPreRunE: setupSession,
	PersistentPostRun: finishSession,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(fmtTraceCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to codetrace.toml (default: nearest one above the working directory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("exectrace", "", "write a runtime execution trace to file")
	rootCmd.PersistentFlags().String("trace", "", "write phase spans to file (- for stderr; .ndjson and .json pick the format)")
	rootCmd.PersistentFlags().String("trace-level", "off", "phase trace level (off|error|phase|detail)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "phase trace storage (stream|ring|both); ring is written only on failure")
	rootCmd.PersistentFlags().Int("trace-ring-size", phasetrace.DefaultRingSize, "events kept by the phase trace ring")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a phase trace heartbeat at this interval (0 disables)")

	err := rootCmd.Execute()
	if traceErr := current.tracing.finish(err, os.Stderr); traceErr != nil {
		fmt.Fprintf(os.Stderr, "codetrace: %v\n", traceErr)
		err = multierr.Append(err, traceErr)
	}
	if stopErr := current.profile.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "codetrace: %v\n", stopErr)
		err = multierr.Append(err, stopErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func setupSession(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		if cfg.Log.Level, err = flags.GetString("log-level"); err != nil {
			return err
		}
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return err
	}
	mode, err := readColorMode(colorFlag)
	if err != nil {
		return err
	}
	applyColorMode(mode)

	timings, err := flags.GetBool("timings")
	if err != nil {
		return err
	}

	var profOpts prof.Options
	if profOpts.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return err
	}
	if profOpts.Mem, err = flags.GetString("memprofile"); err != nil {
		return err
	}
	if profOpts.ExecTrace, err = flags.GetString("exectrace"); err != nil {
		return err
	}

	current = session{
		cfg:    cfg,
		logger: newLogger(cmd.ErrOrStderr(), level, useColor(mode, os.Stderr)),
	}
	if timings {
		current.timer = observ.NewTimer()
	}
	if profOpts.Enabled() {
		if current.profile, err = prof.Start(profOpts); err != nil {
			return err
		}
	}
	if current.tracing, err = setupTracing(cmd); err != nil {
		return err
	}
	current.logger.Debug("session ready", zap.Stringer("level", level), zap.Bool("timings", timings))
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.Discover(".")
	return cfg, err
}

func finishSession(cmd *cobra.Command, _ []string) {
	if current.timer != nil {
		current.timer.Log(current.logger)
		fmt.Fprint(cmd.ErrOrStderr(), current.timer.Summary())
	}
	_ = current.logger.Sync()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
