// Package monitor runs one full usage collection: channel negotiation,
// token lookup, dashboard fetch and event aggregation.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/janekbaraniewski/cursor-monitor/internal/auth"
	"github.com/janekbaraniewski/cursor-monitor/internal/config"
	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/detect"
	"github.com/janekbaraniewski/cursor-monitor/internal/providers/cursor"
	"github.com/janekbaraniewski/cursor-monitor/internal/statedb"
)

type CollectOptions struct {
	// WithEvents requests the usage events call even when the config has
	// detailed_events disabled.
	WithEvents bool
	// Prompter overrides Service.Prompter for this call.
	Prompter detect.SwitchPrompter
}

// Report is everything one collection produced. Stats is nil when the
// events call was skipped or failed; EventsErr tells the two apart.
type Report struct {
	ID           ulid.ULID
	Channel      core.Channel
	DBPath       string
	Switched     bool
	UserID       string
	Account      core.AccountProfile
	Subscription core.SubscriptionProfile
	Usage        core.UsageSummary
	Stats        *core.AggregatedStats
	EventsErr    error
	FetchedAt    time.Time
}

type Service struct {
	Config     *config.Store
	Env        detect.Env
	Tokens     detect.TokenReader
	Prompter   detect.SwitchPrompter
	HTTPClient *http.Client

	now func() time.Time
}

func NewService(store *config.Store, prompter detect.SwitchPrompter) *Service {
	return &Service{
		Config:   store,
		Env:      detect.HostEnv(),
		Tokens:   statedb.New(),
		Prompter: prompter,
		now:      time.Now,
	}
}

// Collect performs one menu invocation. The config is re-read on every call
// so a channel toggled in between takes effect.
func (s *Service) Collect(ctx context.Context, opts CollectOptions) (Report, error) {
	report := Report{ID: ulid.Make()}

	cfg, err := s.Config.Load()
	if err != nil {
		return report, fmt.Errorf("loading config: %w", err)
	}
	log.Printf("[monitor] %s collecting (channel=%s)", report.ID, cfg.Channel())

	neg := &detect.Negotiator{
		Locate: func(ch core.Channel) (core.DBLocation, error) {
			return detect.Locate(s.Env, ch)
		},
		Tokens:   s.tokens(),
		Prompter: s.prompter(opts),
		Settings: s.Config,
	}
	res, err := neg.Negotiate(ctx, cfg.Channel())
	report.Channel = res.Location.Channel
	report.DBPath = res.Location.Path
	report.Switched = res.Switched
	if err != nil {
		log.Printf("[monitor] %s negotiation ended in %v: %v", report.ID, res.Trace, err)
		return report, err
	}

	creds := auth.NewCredentials(res.Token)
	report.UserID = creds.UserID

	withEvents := opts.WithEvents || cfg.API.DetailedEvents
	dash, err := s.client(cfg).FetchDashboard(ctx, creds, withEvents)
	if err != nil {
		log.Printf("[monitor] %s dashboard fetch failed: %v", report.ID, err)
		return report, err
	}

	report.Account = dash.Account
	report.Subscription = dash.Subscription
	report.Usage = dash.Usage
	report.EventsErr = dash.EventsErr
	if dash.Events != nil {
		stats := core.AggregatePage(*dash.Events)
		report.Stats = &stats
	}
	report.FetchedAt = s.clock()

	log.Printf("[monitor] %s done: premium %d/%d basic %d/%d",
		report.ID, report.Usage.PremiumUsed, report.Usage.PremiumLimit, report.Usage.BasicUsed, report.Usage.BasicLimit)
	return report, nil
}

// ToggleChannel persists the other channel and returns it.
func (s *Service) ToggleChannel() (core.Channel, error) {
	current, err := s.Config.Channel()
	if err != nil {
		return current, err
	}
	next := current.Alternate()
	if err := s.Config.SaveChannel(next); err != nil {
		return current, fmt.Errorf("saving channel: %w", err)
	}
	log.Printf("[monitor] channel switched from %s to %s", current, next)
	return next, nil
}

// SetChannel persists ch.
func (s *Service) SetChannel(ch core.Channel) error {
	if err := s.Config.SaveChannel(ch); err != nil {
		return fmt.Errorf("saving channel: %w", err)
	}
	return nil
}

// Locate reports where the configured channel's state database lives.
func (s *Service) Locate() (core.DBLocation, error) {
	ch, err := s.Config.Channel()
	if err != nil {
		return core.DBLocation{}, err
	}
	return detect.Locate(s.Env, ch)
}

func (s *Service) client(cfg config.Config) *cursor.Client {
	c := cursor.NewClient()
	if s.HTTPClient != nil {
		c.HTTPClient = s.HTTPClient
	}
	c.WebBaseURL = cfg.API.WebBaseURL
	c.APIBaseURL = cfg.API.APIBaseURL
	c.UserAgent = cfg.API.UserAgent
	c.EventsTimeout = cfg.API.EventsTimeout()
	return c
}

func (s *Service) prompter(opts CollectOptions) detect.SwitchPrompter {
	if opts.Prompter != nil {
		return opts.Prompter
	}
	return s.Prompter
}

func (s *Service) tokens() detect.TokenReader {
	if s.Tokens != nil {
		return s.Tokens
	}
	return statedb.New()
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
