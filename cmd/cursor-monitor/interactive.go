package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/monitor"
	"github.com/janekbaraniewski/cursor-monitor/internal/tui"
)

// runInteractive is the menu loop: collect, show the report with actions,
// act, repeat until the user quits.
func runInteractive(ctx context.Context, opts *options) error {
	svc := opts.service()
	width := terminalWidth()

	for {
		report, err := opts.collect(ctx, svc, false)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		action, err := tui.RunMenu(ctx, tui.RenderReport(report, width), report.Channel)
		if err != nil {
			return err
		}

		switch action {
		case tui.ActionRefresh:
			continue
		case tui.ActionStats:
			quit, err := showStats(ctx, opts, svc, report, width)
			if err != nil || quit {
				return err
			}
		case tui.ActionSwitchChannel:
			next, err := svc.ToggleChannel()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Switched to %s.\n", next.DisplayName())
		default:
			return nil
		}
	}
}

// showStats displays the per-model breakdown, fetching events when the
// report was collected without them. It reports whether the user quit.
func showStats(ctx context.Context, opts *options, svc *monitor.Service, report monitor.Report, width int) (bool, error) {
	stats := report.Stats
	if stats == nil {
		fresh, err := opts.collect(ctx, svc, true)
		if err != nil {
			return false, err
		}
		stats = fresh.Stats
		if stats == nil && errors.Is(fresh.EventsErr, core.ErrOptionalFeatureUnavailable) {
			fmt.Fprintln(os.Stderr, tui.RenderError(fresh.EventsErr))
		}
	}

	action, err := tui.RunStatsMenu(ctx, tui.RenderModelStats(stats, width))
	if err != nil {
		return false, err
	}
	return action == tui.ActionQuit, nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return w
}
