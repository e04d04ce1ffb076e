package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codetrace/internal/codec/header"
	"codetrace/internal/codec/jsontrace"
	"codetrace/internal/prettify"
	"codetrace/internal/traceio"
)

var fmtTraceCmd = &cobra.Command{
	Use:   "fmt [flags] <source> <target>",
	Short: "Pretty-print a trace as line-per-event JSON",
	Long: `fmt writes <source> as a JSON array with one event per line. Binary
traces are decoded first. Absolute paths containing /src/ are rewritten to
<relative-to-this>/src/... unless --relative-paths=false.`,
	Args: cobra.ExactArgs(2),
	RunE: runFmtTrace,
}

func init() {
	fmtTraceCmd.Flags().Bool("relative-paths", true, "rewrite absolute source paths (default from [format].relative_paths)")
}

func runFmtTrace(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	relative := current.cfg.RelativePaths()
	if cmd.Flags().Changed("relative-paths") {
		var err error
		if relative, err = cmd.Flags().GetBool("relative-paths"); err != nil {
			return err
		}
	}
	if err := formatTrace(args[0], args[1], relative); err != nil {
		return fmt.Errorf("fmt: %w", err)
	}
	return nil
}

// formatTrace prettifies JSON input directly and re-encodes binary input
// to JSON before prettifying it.
func formatTrace(src, dst string, relative bool) error {
	format, err := traceio.DetectFile(src)
	if errors.Is(err, header.ErrInvalidHeader) || errors.Is(err, header.ErrTruncated) {
		return prettify.File(src, dst, relative)
	}
	if err != nil {
		return err
	}
	events, err := traceio.Load(src, format, traceio.WithLogger(current.logger))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := jsontrace.Encode(&buf, events); err != nil {
		return err
	}
	out, err := prettify.Value(buf.Bytes())
	if err != nil {
		return err
	}
	if relative {
		out = prettify.CorrectPaths(out)
	}
	return os.WriteFile(dst, []byte(out+"\n"), 0o644)
}
