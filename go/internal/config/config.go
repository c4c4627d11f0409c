// Package config loads viewer settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sevahub/templeauction/go/internal/auction/ladder"
)

const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config holds everything needed to run one viewer session.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Sync     SyncConfig     `yaml:"sync"`
	Ladder   LadderConfig   `yaml:"ladder"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig points at the auction REST backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

// RealtimeConfig selects and configures the push channel.
type RealtimeConfig struct {
	Transport     string        `yaml:"transport"`
	URL           string        `yaml:"url"`
	NATSURL       string        `yaml:"nats_url"`
	Subject       string        `yaml:"subject"`
	Stream        string        `yaml:"stream"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	PingInterval  time.Duration `yaml:"ping_interval"`
}

// ViewerConfig identifies the viewer and where the local UI bridge listens.
type ViewerConfig struct {
	TeamID string `yaml:"team_id"`
	Addr   string `yaml:"addr"`
}

// SyncConfig tunes reconciliation.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	FreezeWindow time.Duration `yaml:"freeze_window"`
	QueueLimit   int           `yaml:"queue_limit"`
}

// LadderConfig is the bid ladder plus how many quick-bid options to offer.
// File, when set, replaces the inline ladder with one read from its own YAML.
type LadderConfig struct {
	ladder.Ladder `yaml:",inline"`
	File          string `yaml:"file"`
	Options       int    `yaml:"options"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a config that talks to a backend on localhost.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000/api",
			Timeout: 10 * time.Second,
		},
		Realtime: RealtimeConfig{
			Transport:     TransportWebSocket,
			URL:           "ws://localhost:3000/ws",
			NATSURL:       "nats://localhost:4222",
			Subject:       "auction.events",
			ReconnectWait: 2 * time.Second,
			PingInterval:  30 * time.Second,
		},
		Viewer: ViewerConfig{
			Addr: ":8090",
		},
		Sync: SyncConfig{
			PollInterval: 30 * time.Second,
			FreezeWindow: time.Second,
			QueueLimit:   5,
		},
		Ladder: LadderConfig{
			Ladder:  ladder.Default(),
			Options: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.Realtime.Transport = strings.ToLower(cfg.Realtime.Transport)

	if cfg.Ladder.File != "" {
		l, err := ladder.Load(cfg.Ladder.File)
		if err != nil {
			return Config{}, fmt.Errorf("ladder.file: %w", err)
		}
		cfg.Ladder.Ladder = l
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Path returns the config file location from AUCTION_CONFIG.
func Path() string {
	return getEnv("AUCTION_CONFIG", "config.yaml")
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("AUCTION_API_URL", c.API.BaseURL)
	c.API.Token = getEnv("AUCTION_API_TOKEN", c.API.Token)
	c.API.Timeout = getEnvAsDuration("AUCTION_API_TIMEOUT", c.API.Timeout)

	c.Realtime.Transport = getEnv("AUCTION_TRANSPORT", c.Realtime.Transport)
	c.Realtime.URL = getEnv("AUCTION_WS_URL", c.Realtime.URL)
	c.Realtime.NATSURL = getEnv("NATS_URL", c.Realtime.NATSURL)
	c.Realtime.Subject = getEnv("AUCTION_SUBJECT", c.Realtime.Subject)
	c.Realtime.Stream = getEnv("AUCTION_STREAM", c.Realtime.Stream)

	c.Viewer.TeamID = getEnv("AUCTION_TEAM_ID", c.Viewer.TeamID)
	c.Viewer.Addr = getEnv("VIEWER_ADDR", c.Viewer.Addr)

	c.Sync.PollInterval = getEnvAsDuration("AUCTION_POLL_INTERVAL", c.Sync.PollInterval)
	c.Sync.QueueLimit = getEnvAsInt("AUCTION_QUEUE_LIMIT", c.Sync.QueueLimit)

	c.Ladder.File = getEnv("AUCTION_LADDER_FILE", c.Ladder.File)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate rejects configs the session cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}

	switch c.Realtime.Transport {
	case TransportWebSocket:
		if c.Realtime.URL == "" {
			errs = append(errs, errors.New("realtime.url is required for the websocket transport"))
		}
	case TransportNATS:
		if c.Realtime.NATSURL == "" {
			errs = append(errs, errors.New("realtime.nats_url is required for the nats transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown realtime.transport %q", c.Realtime.Transport))
	}
	if c.Realtime.ReconnectWait <= 0 {
		errs = append(errs, errors.New("realtime.reconnect_wait must be positive"))
	}
	if c.Realtime.PingInterval <= 0 {
		errs = append(errs, errors.New("realtime.ping_interval must be positive"))
	}

	if c.Sync.PollInterval <= 0 {
		errs = append(errs, errors.New("sync.poll_interval must be positive"))
	}
	if c.Sync.FreezeWindow <= 0 {
		errs = append(errs, errors.New("sync.freeze_window must be positive"))
	}
	if c.Sync.QueueLimit <= 0 {
		errs = append(errs, errors.New("sync.queue_limit must be positive"))
	}

	if err := c.Ladder.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Ladder.Options <= 0 {
		errs = append(errs, errors.New("ladder.options must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
