package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/cursor-monitor/internal/config"
	"github.com/janekbaraniewski/cursor-monitor/internal/detect"
	"github.com/janekbaraniewski/cursor-monitor/internal/monitor"
	"github.com/janekbaraniewski/cursor-monitor/internal/tui"
	"github.com/janekbaraniewski/cursor-monitor/internal/version"
)

type options struct {
	configPath string
	debug      bool
	assumeYes  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderError(err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "cursor-monitor",
		Short:         "cursor-monitor shows Cursor request usage, plan and spend from the local session.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(opts.debug)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default "+config.ConfigPath()+")")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log diagnostics to stderr (or set CURSOR_MONITOR_DEBUG)")
	root.PersistentFlags().BoolVarP(&opts.assumeYes, "yes", "y", false, "switch to the other installed channel without asking")

	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newStatsCommand(opts))
	root.AddCommand(newChannelCommand(opts))
	root.AddCommand(newWatchCommand(opts))
	root.AddCommand(newDoctorCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

func setupLogging(debug bool) {
	if debug || os.Getenv("CURSOR_MONITOR_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
}

func (o *options) prompter() tui.ConfirmPrompter {
	return tui.ConfirmPrompter{AssumeYes: o.assumeYes}
}

func (o *options) service() *monitor.Service {
	return monitor.NewService(config.NewStore(o.configPath), o.prompter())
}

// collect runs one collection behind the spinner.
func (o *options) collect(ctx context.Context, svc *monitor.Service, withEvents bool) (monitor.Report, error) {
	return tui.RunWithSpinner(ctx, "Fetching Cursor usage…", o.prompter(),
		func(ctx context.Context, prompter detect.SwitchPrompter) (monitor.Report, error) {
			return svc.Collect(ctx, monitor.CollectOptions{WithEvents: withEvents, Prompter: prompter})
		})
}
