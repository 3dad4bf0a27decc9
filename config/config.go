package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/0x5487/depthbook"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SupportedDepths are the book depths the exchange accepts on subscribe.
var SupportedDepths = []int{10, 25, 100, 500, 1000}

type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	History HistoryConfig `yaml:"history"`
	Logging LogConfig     `yaml:"logging"`
}

type FeedConfig struct {
	URL              string        `yaml:"url"`
	Symbols          []string      `yaml:"symbols"`
	Depth            int           `yaml:"depth"`
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

type HistoryConfig struct {
	Size int `yaml:"size"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or text
	Output     string `yaml:"output"` // stdout, stderr or a file path
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Defaults returns the configuration used when neither a file nor the environment
// says otherwise.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			URL:              depthbook.DefaultURL,
			Symbols:          []string{"BTC/USD"},
			Depth:            25,
			ThrottleInterval: depthbook.DefaultThrottleInterval,
			ReconnectDelay:   depthbook.DefaultReconnectDelay,
			HandshakeTimeout: depthbook.DefaultHandshakeTimeout,
			PingInterval:     depthbook.DefaultPingInterval,
		},
		History: HistoryConfig{
			Size: depthbook.MaxHistory,
		},
		Logging: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxAgeDays: 7,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML configuration file at path, merges it on top of the
// defaults and applies DEPTHBOOK_* environment overrides, including those from
// a .env file in the working directory. An empty path skips the file.
// The returned Config has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("feed.url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.url must use ws or wss, got '%s'", c.Feed.URL)
	}

	if len(c.Feed.Symbols) == 0 {
		return errors.New("feed.symbols is required")
	}
	for _, symbol := range c.Feed.Symbols {
		if len(strings.TrimSpace(symbol)) == 0 {
			return errors.New("feed.symbols must not contain empty symbols")
		}
	}

	if !slices.Contains(SupportedDepths, c.Feed.Depth) {
		return fmt.Errorf("feed.depth must be one of %v, got %d", SupportedDepths, c.Feed.Depth)
	}
	if c.Feed.ThrottleInterval < 0 {
		return errors.New("feed.throttle_interval must not be negative")
	}
	if c.Feed.ReconnectDelay <= 0 {
		return errors.New("feed.reconnect_delay must be greater than 0")
	}
	if c.Feed.HandshakeTimeout <= 0 {
		return errors.New("feed.handshake_timeout must be greater than 0")
	}
	if c.Feed.PingInterval <= 0 {
		return errors.New("feed.ping_interval must be greater than 0")
	}

	if c.History.Size <= 0 {
		return errors.New("history.size must be greater than 0")
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level is invalid: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text, got '%s'", c.Logging.Format)
	}

	return nil
}

// SessionOptions converts the feed and history settings into session options.
// Publisher and Serializer are left to the caller.
func (c *Config) SessionOptions() depthbook.Options {
	return depthbook.Options{
		URL:              c.Feed.URL,
		Depth:            c.Feed.Depth,
		HistorySize:      c.History.Size,
		ThrottleInterval: c.Feed.ThrottleInterval,
		ReconnectDelay:   c.Feed.ReconnectDelay,
		HandshakeTimeout: c.Feed.HandshakeTimeout,
		PingInterval:     c.Feed.PingInterval,
	}
}
