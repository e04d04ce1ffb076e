package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"codetrace/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

type checkOutcome struct {
	results []checkResult
	err     error
}

// runCheckWithUI runs checkFiles behind a progress display. Logging is
// silenced while the display owns the terminal.
func runCheckWithUI(ctx context.Context, paths []string, formatFlag string, jobs int) ([]checkResult, error) {
	events := make(chan ui.FileEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		sink := ui.ChannelSink{Ch: events}
		results, err := checkFiles(ctx, paths, formatFlag, jobs, zap.NewNop(), sink.Report)
		outcomeCh <- checkOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(fmt.Sprintf("checking %d traces", len(paths)), paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
