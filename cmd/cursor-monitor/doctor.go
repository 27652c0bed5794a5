package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/cursor-monitor/internal/auth"
	"github.com/janekbaraniewski/cursor-monitor/internal/config"
	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/detect"
	"github.com/janekbaraniewski/cursor-monitor/internal/providers/cursor"
	"github.com/janekbaraniewski/cursor-monitor/internal/statedb"
)

var (
	doctorSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA"))
	doctorDimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#585B70"))
	doctorOKStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	doctorWarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	doctorFailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

func newDoctorCommand(opts *options) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the local installation, session token and API reachability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := &doctor{out: cmd.OutOrStdout(), env: detect.HostEnv(), store: config.NewStore(opts.configPath)}
			return d.run(cmd.Context(), !offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the API checks")
	return cmd
}

type doctor struct {
	out      io.Writer
	env      detect.Env
	store    *config.Store
	client   *cursor.Client
	failures int
}

var errDoctorFailed = errors.New("doctor found problems")

func (d *doctor) run(ctx context.Context, online bool) error {
	d.section("Platform")
	d.kv("OS/arch", runtime.GOOS+"/"+runtime.GOARCH)

	d.section("Config")
	d.kv("Path", d.store.Path())
	cfg, err := d.store.Load()
	if err != nil {
		d.fail(err.Error())
		cfg = config.DefaultConfig()
	} else {
		d.ok("config is valid")
	}
	d.kv("Channel", cfg.Channel().DisplayName())

	d.section("Installations")
	var configured core.DBLocation
	for _, ch := range []core.Channel{core.ChannelStable, core.ChannelNightly} {
		loc, err := detect.Locate(d.env, ch)
		if err != nil {
			d.fail(err.Error())
			return errDoctorFailed
		}
		if ch == cfg.Channel() {
			configured = loc
		}
		if loc.Exists {
			d.ok(fmt.Sprintf("%s: %s", ch.DisplayName(), loc.Path))
		} else {
			d.warn(fmt.Sprintf("%s: not found at %s", ch.DisplayName(), loc.Path))
		}
	}

	d.section("Session token")
	if !configured.Exists {
		d.fail("configured channel is not installed")
		return errDoctorFailed
	}
	token, err := statedb.New().ReadToken(ctx, configured.Path)
	switch {
	case statedb.IsMissing(err):
		d.fail("state database vanished while reading: " + configured.Path)
		return errDoctorFailed
	case errors.Is(err, core.ErrTokenAbsent):
		d.fail("no session token stored, sign in to Cursor first")
		return errDoctorFailed
	case err != nil:
		d.fail(err.Error())
		return errDoctorFailed
	}
	d.kv("Token length", fmt.Sprintf("%d chars", len(token)))
	claims := auth.DecodeClaims(token)
	if claims.SubjectID != "" {
		d.ok("user id " + claims.SubjectID)
	} else {
		d.warn("no auth0 subject in token, requests use a placeholder id")
	}
	switch {
	case claims.ExpiresAt.IsZero():
		d.warn("token has no expiry claim")
	case claims.Expired(time.Now()):
		d.fail("token expired " + claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	default:
		d.ok("token valid until " + claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}

	if online {
		d.section("API")
		d.client = cursor.NewClient()
		d.client.WebBaseURL = cfg.API.WebBaseURL
		d.client.APIBaseURL = cfg.API.APIBaseURL
		d.client.UserAgent = cfg.API.UserAgent
		d.client.EventsTimeout = cfg.API.EventsTimeout()
		d.probeAPI(ctx, auth.NewCredentials(token))
	}

	if d.failures > 0 {
		return errDoctorFailed
	}
	return nil
}

func (d *doctor) probeAPI(ctx context.Context, creds auth.Credentials) {
	checks := []struct {
		name     string
		optional bool
		call     func(context.Context) error
	}{
		{"account (/api/auth/me)", false, func(ctx context.Context) error {
			_, err := d.client.FetchAccount(ctx, creds)
			return err
		}},
		{"subscription (/auth/full_stripe_profile)", false, func(ctx context.Context) error {
			_, err := d.client.FetchSubscription(ctx, creds)
			return err
		}},
		{"usage (/api/usage)", false, func(ctx context.Context) error {
			_, err := d.client.FetchUsage(ctx, creds)
			return err
		}},
		{"usage events", true, func(ctx context.Context) error {
			_, err := d.client.FetchUsageEvents(ctx, creds)
			return err
		}},
	}
	for _, c := range checks {
		start := time.Now()
		err := c.call(ctx)
		elapsed := time.Since(start).Round(time.Millisecond)
		switch {
		case err == nil:
			d.ok(fmt.Sprintf("%s %s", c.name, doctorDimStyle.Render(elapsed.String())))
		case c.optional:
			d.warn(fmt.Sprintf("%s: %v", c.name, err))
		default:
			d.fail(fmt.Sprintf("%s: %v", c.name, err))
		}
	}
}

func (d *doctor) section(title string) {
	fmt.Fprintf(d.out, "\n  %s\n  %s\n", doctorSectionStyle.Render(title), doctorDimStyle.Render(strings.Repeat("─", 50)))
}

func (d *doctor) kv(key, value string) {
	dots := 20 - len(key)
	if dots < 2 {
		dots = 2
	}
	fmt.Fprintf(d.out, "    %s %s %s\n", doctorDimStyle.Render(key), doctorDimStyle.Render(strings.Repeat("·", dots)), value)
}

func (d *doctor) ok(msg string) {
	fmt.Fprintf(d.out, "    %s %s\n", doctorOKStyle.Render("✓"), msg)
}

func (d *doctor) warn(msg string) {
	fmt.Fprintf(d.out, "    %s %s\n", doctorWarnStyle.Render("⚠"), msg)
}

func (d *doctor) fail(msg string) {
	d.failures++
	fmt.Fprintf(d.out, "    %s %s\n", doctorFailStyle.Render("✗"), msg)
}
