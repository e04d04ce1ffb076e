package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codetrace/internal/phasetrace"
	"codetrace/internal/trace"
	"codetrace/internal/traceio"
	"codetrace/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file> [file...]",
	Short: "Verify that trace files decode and declare identifiers before use",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "", "trace format (json|binary|binary-v0); default from extension or header")
	checkCmd.Flags().Int("jobs", 0, "max parallel files (0=auto)")
	checkCmd.Flags().String("ui", "off", "live progress display (auto|on|off)")
}

type checkResult struct {
	Path   string
	Events int
	Err    error
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}

	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	var results []checkResult
	if shouldUseTUI(mode) {
		results, err = runCheckWithUI(cmd.Context(), args, formatFlag, jobs)
	} else {
		results, err = checkFiles(cmd.Context(), args, formatFlag, jobs, current.logger, nil)
	}
	if err != nil {
		return err
	}
	if failed := renderCheckResults(cmd.OutOrStdout(), results); failed > 0 {
		return fmt.Errorf("check: %d of %d files failed", failed, len(results))
	}
	return nil
}

// checkFiles loads and checks every path concurrently. Per-file failures
// are reported in the results; the returned error is only cancellation.
// report, when non-nil, receives status changes from the worker goroutines.
func checkFiles(ctx context.Context, paths []string, formatFlag string, jobs int, logger *zap.Logger, report func(ui.FileEvent)) ([]checkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if report == nil {
		report = func(ui.FileEvent) {}
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]checkResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(gctx, path, formatFlag, logger, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkFile(ctx context.Context, path, formatFlag string, logger *zap.Logger, report func(ui.FileEvent)) (res checkResult) {
	res.Path = path
	_, span := phasetrace.Start(ctx, phasetrace.ScopeFile, "file:"+path)
	defer func() {
		span.WithCount("events", res.Events).EndErr(res.Err)
		status := ui.StatusDone
		if res.Err != nil {
			status = ui.StatusFailed
			logger.Debug("trace check failed", zap.String("path", path), zap.Error(res.Err))
		}
		report(ui.FileEvent{Path: path, Status: status, Events: res.Events})
	}()

	report(ui.FileEvent{Path: path, Status: ui.StatusLoading})
	format, err := resolveInputFormat(formatFlag, path)
	if err != nil {
		res.Err = err
		return res
	}
	events, err := traceio.Load(path, format, traceio.WithLogger(logger))
	if err != nil {
		res.Err = err
		return res
	}
	res.Events = len(events)
	report(ui.FileEvent{Path: path, Status: ui.StatusChecking, Events: res.Events})
	res.Err = trace.CheckDefinitions(events)
	return res
}

var (
	checkOK   = color.New(color.FgGreen, color.Bold)
	checkFail = color.New(color.FgRed, color.Bold)
)

func renderCheckResults(w io.Writer, results []checkResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", checkFail.Sprint("FAIL"), r.Path, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s   %s (%d events)\n", checkOK.Sprint("ok"), r.Path, r.Events)
	}
	return failed
}
