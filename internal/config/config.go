package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/providers/cursor"
)

const (
	DefaultEventsTimeoutSeconds = 15
	maxEventsTimeoutSeconds     = 300
)

type APIConfig struct {
	WebBaseURL           string `toml:"web_base_url" validate:"required,url"`
	APIBaseURL           string `toml:"api_base_url" validate:"required,url"`
	UserAgent            string `toml:"user_agent" validate:"required"`
	EventsTimeoutSeconds int    `toml:"events_timeout_seconds" validate:"min=1,max=300"`
	DetailedEvents       bool   `toml:"detailed_events"`
}

// EventsTimeout bounds the optional usage events request.
func (a APIConfig) EventsTimeout() time.Duration {
	return time.Duration(a.EventsTimeoutSeconds) * time.Second
}

type Config struct {
	UseCursorNightly bool      `toml:"use_cursor_nightly"`
	API              APIConfig `toml:"api"`
}

func (c Config) Channel() core.Channel {
	return core.ChannelFromNightly(c.UseCursorNightly)
}

func DefaultConfig() Config {
	return Config{
		UseCursorNightly: false,
		API: APIConfig{
			WebBaseURL:           cursor.DefaultWebBaseURL,
			APIBaseURL:           cursor.DefaultAPIBaseURL,
			UserAgent:            cursor.DefaultUserAgent,
			EventsTimeoutSeconds: DefaultEventsTimeoutSeconds,
			DetailedEvents:       true,
		},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cursor-monitor")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cursor-monitor")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid field by its TOML key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return fmt.Errorf("invalid config: %s failed %q", tomlKey(fe.Namespace()), fe.Tag())
}

var tomlKeys = map[string]string{
	"WebBaseURL":           "web_base_url",
	"APIBaseURL":           "api_base_url",
	"UserAgent":            "user_agent",
	"EventsTimeoutSeconds": "events_timeout_seconds",
}

func tomlKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	field := parts[len(parts)-1]
	if key, ok := tomlKeys[field]; ok {
		return "api." + key
	}
	return namespace
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	def := DefaultConfig()
	if strings.TrimSpace(cfg.API.WebBaseURL) == "" {
		cfg.API.WebBaseURL = def.API.WebBaseURL
	}
	if strings.TrimSpace(cfg.API.APIBaseURL) == "" {
		cfg.API.APIBaseURL = def.API.APIBaseURL
	}
	if strings.TrimSpace(cfg.API.UserAgent) == "" {
		cfg.API.UserAgent = def.API.UserAgent
	}
	if cfg.API.EventsTimeoutSeconds == 0 {
		cfg.API.EventsTimeoutSeconds = def.API.EventsTimeoutSeconds
	}

	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveChannelTo persists the channel selection into the config file
// (read-modify-write). Other settings are preserved; an unreadable file is
// left untouched.
func SaveChannelTo(path string, ch core.Channel) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		return err
	}
	cfg.UseCursorNightly = ch == core.ChannelNightly
	return SaveTo(path, cfg)
}

// Store binds the config operations to one file path.
type Store struct {
	path string
}

// NewStore returns a Store for path, or for ConfigPath() when path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = ConfigPath()
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load() (Config, error) {
	return LoadFrom(s.path)
}

// Channel returns the configured channel, falling back to stable when the
// file cannot be read.
func (s *Store) Channel() (core.Channel, error) {
	cfg, err := s.Load()
	if err != nil {
		return core.ChannelStable, err
	}
	return cfg.Channel(), nil
}

func (s *Store) SaveChannel(ch core.Channel) error {
	return SaveChannelTo(s.path, ch)
}
