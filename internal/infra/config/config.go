// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Queue    QueueConfig    `yaml:"queue"`
	Store    StoreConfig    `yaml:"store"`
	Playback PlaybackConfig `yaml:"playback"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// QueueConfig represents queue engine configuration.
type QueueConfig struct {
	HistorySize      int `yaml:"history_size" default:"50" validate:"gte=1,lte=1000"`
	RecentWindow     int `yaml:"recent_window" default:"20" validate:"gte=1,ltefield=HistorySize"`
	SubscriberBuffer int `yaml:"subscriber_buffer" default:"16" validate:"gte=1,lte=4096"`
}

// StoreConfig represents persistent queue store configuration.
type StoreConfig struct {
	Path          string `yaml:"path"`
	SaveTimeoutMs int    `yaml:"save_timeout_ms" default:"2000" validate:"gte=100,lte=60000"`
}

// PlaybackConfig represents playback timeline configuration.
type PlaybackConfig struct {
	EventBuffer    int `yaml:"event_buffer" default:"32" validate:"gte=1,lte=4096"`
	TickIntervalMs int `yaml:"tick_interval_ms" default:"250" validate:"gte=10,lte=5000"`
}

// TickInterval returns how often the playback clock advances.
func (p PlaybackConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// SpotifyConfig represents Spotify API configuration. The resolver is
// disabled when credentials are missing.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	RefreshToken string `yaml:"refresh_token" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// SaveTimeout returns the store save timeout.
func (s StoreConfig) SaveTimeout() time.Duration {
	return time.Duration(s.SaveTimeoutMs) * time.Millisecond
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return finish(&cfg)
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	cfg.overrideFromEnv()

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("PLAYQUEUE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
