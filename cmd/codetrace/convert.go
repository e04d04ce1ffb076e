package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codetrace/internal/observ"
	"codetrace/internal/trace"
	"codetrace/internal/traceio"
)

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <input> <output>",
	Short: "Convert a trace file from one format to another",
	Long: `Convert reads every event of <input> and writes them to <output>.
Formats come from --input-format/--output-format, then from the file
extension (.json, .bin), then from [convert].output_format in codetrace.toml.
Binary input is recognized by its header whichever binary format is named.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("input-format", "", "input format (json|binary|binary-v0)")
	convertCmd.Flags().String("output-format", "", "output format (json|binary|binary-v0)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	inputFlag, err := cmd.Flags().GetString("input-format")
	if err != nil {
		return err
	}
	outputFlag, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return err
	}

	in, err := resolveInputFormat(inputFlag, args[0])
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	configured, ok, err := current.cfg.OutputFormat()
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	var fallback *traceio.Format
	if ok {
		fallback = &configured
	}
	out, err := resolveOutputFormat(outputFlag, args[1], fallback)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	timer := current.timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	n, err := convertFile(cmd.Context(), timer, current.logger, args[0], in, args[1], out)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	current.logger.Info("converted trace",
		zap.String("input", args[0]), zap.Stringer("input_format", in),
		zap.String("output", args[1]), zap.Stringer("output_format", out),
		zap.Int("events", n))
	return nil
}

// resolveInputFormat prefers the flag and falls back to the extension.
func resolveInputFormat(flag, path string) (traceio.Format, error) {
	if flag != "" {
		return traceio.ParseFormat(flag)
	}
	return formatFromPathOrHeader(path)
}

// formatFromPathOrHeader uses the extension and then the binary header.
func formatFromPathOrHeader(path string) (traceio.Format, error) {
	f, err := traceio.FormatFromPath(path)
	if err == nil {
		return f, nil
	}
	if detected, derr := traceio.DetectFile(path); derr == nil {
		return detected, nil
	}
	return 0, err
}

func resolveOutputFormat(flag, path string, fallback *traceio.Format) (traceio.Format, error) {
	if flag != "" {
		return traceio.ParseFormat(flag)
	}
	f, err := traceio.FormatFromPath(path)
	if err == nil {
		return f, nil
	}
	if fallback != nil && errors.Is(err, traceio.ErrUnknownFormat) {
		return *fallback, nil
	}
	return 0, err
}

// convertFile loads src and writes it to dst, timing and tracing both
// phases.
func convertFile(ctx context.Context, timer *observ.Timer, logger *zap.Logger, src string, in traceio.Format, dst string, out traceio.Format) (int, error) {
	var events []trace.Event
	err := trackPhase(ctx, timer, "load", func() (int, error) {
		var err error
		events, err = traceio.Load(src, in, traceio.WithLogger(logger))
		return len(events), err
	})
	if err != nil {
		return 0, err
	}
	err = trackPhase(ctx, timer, "write", func() (int, error) {
		return len(events), writeEvents(dst, out, events, logger)
	})
	return len(events), err
}

func writeEvents(path string, format traceio.Format, events []trace.Event, logger *zap.Logger) error {
	w, err := traceio.NewWriter(format, traceio.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := w.Begin(path); err != nil {
		return err
	}
	w.Append(events)
	return w.Finish()
}
