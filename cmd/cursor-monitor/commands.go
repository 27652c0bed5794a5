package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/cursor-monitor/internal/config"
	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/monitor"
	"github.com/janekbaraniewski/cursor-monitor/internal/tui"
	"github.com/janekbaraniewski/cursor-monitor/internal/version"
)

func newStatusCommand(opts *options) *cobra.Command {
	var asJSON bool
	var withEvents bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print usage once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := opts.service()
			var (
				report monitor.Report
				err    error
			)
			if asJSON {
				report, err = svc.Collect(cmd.Context(), monitor.CollectOptions{WithEvents: withEvents})
			} else {
				report, err = opts.collect(cmd.Context(), svc, withEvents)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), newStatusJSON(report))
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderReport(report, terminalWidth()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.Flags().BoolVar(&withEvents, "events", false, "also fetch usage events for spend totals")
	return cmd
}

func newStatsCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-model usage for the current period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := opts.service()
			report, err := opts.collect(cmd.Context(), svc, true)
			if err != nil {
				return err
			}
			if report.Stats == nil {
				return report.EventsErr
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report.Stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderModelStats(report.Stats, terminalWidth()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newChannelCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "channel [stable|nightly]",
		Short:     "Show or set which Cursor channel to read",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"stable", "nightly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.service()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				loc, err := svc.Locate()
				if err != nil {
					return err
				}
				installed := "not installed"
				if loc.Exists {
					installed = "installed"
				}
				fmt.Fprintf(out, "%s (%s)\n  database: %s\n  config:   %s\n",
					loc.Channel.DisplayName(), installed, loc.Path, configPathFor(opts))
				return nil
			}
			ch, err := core.ParseChannel(args[0])
			if err != nil {
				return err
			}
			if err := svc.SetChannel(ch); err != nil {
				return err
			}
			fmt.Fprintf(out, "Now using %s.\n", ch.DisplayName())
			return nil
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print usage whenever Cursor writes its state database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := opts.service()
			loc, err := svc.Locate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := &monitor.Watcher{
				Path:     loc.Path,
				Interval: interval,
				Collect: func(ctx context.Context) (monitor.Report, error) {
					return svc.Collect(ctx, monitor.CollectOptions{Prompter: opts.prompter()})
				},
				OnUpdate: func(r monitor.Report, err error) {
					if err != nil {
						fmt.Fprintln(out, tui.RenderError(err))
						return
					}
					fmt.Fprintln(out, tui.RenderReport(r, terminalWidth()))
				},
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "also refresh on this interval (0 disables)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "cursor-monitor "+version.String())
		},
	}
}

// statusJSON is the machine-readable form of a report.
type statusJSON struct {
	ID           string                   `json:"id"`
	Channel      string                   `json:"channel"`
	DBPath       string                   `json:"db_path"`
	Switched     bool                     `json:"switched,omitempty"`
	UserID       string                   `json:"user_id,omitempty"`
	Account      core.AccountProfile      `json:"account"`
	Subscription core.SubscriptionProfile `json:"subscription"`
	Usage        core.UsageSummary        `json:"usage"`
	PremiumState core.Status              `json:"premium_status"`
	BasicState   core.Status              `json:"basic_status"`
	Stats        *core.AggregatedStats    `json:"stats,omitempty"`
	EventsError  string                   `json:"events_error,omitempty"`
	FetchedAt    time.Time                `json:"fetched_at"`
}

func newStatusJSON(r monitor.Report) statusJSON {
	out := statusJSON{
		ID:           r.ID.String(),
		Channel:      r.Channel.String(),
		DBPath:       r.DBPath,
		Switched:     r.Switched,
		UserID:       r.UserID,
		Account:      r.Account,
		Subscription: r.Subscription,
		Usage:        r.Usage,
		PremiumState: r.Usage.PremiumStatus(),
		BasicState:   r.Usage.BasicStatus(),
		Stats:        r.Stats,
		FetchedAt:    r.FetchedAt,
	}
	if r.EventsErr != nil {
		out.EventsError = r.EventsErr.Error()
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// configPathFor resolves the effective config file for display.
func configPathFor(opts *options) string {
	return config.NewStore(opts.configPath).Path()
}
