package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds client and emulator configuration values.
type Config struct {
	// Message Store client.
	StoreURL       string        `mapstructure:"store_url" yaml:"store_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Session token handling.
	SessionPath     string        `mapstructure:"session_path" yaml:"session_path"`
	SessionSecret   string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionIssuer   string        `mapstructure:"session_issuer" yaml:"session_issuer"`
	SessionAudience string        `mapstructure:"session_audience" yaml:"session_audience"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	RenderWidth int `mapstructure:"render_width" yaml:"render_width"`

	// Store emulator.
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteRateLimit    int           `mapstructure:"write_rate_limit" yaml:"write_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		StoreURL:          "http://localhost:8080",
		PollInterval:      5 * time.Second,
		LogLevel:          "info",
		SessionPath:       defaultSessionPath(),
		SessionSecret:     "change-me",
		SessionIssuer:     "dmview",
		SessionAudience:   "dmview-cli",
		SessionTTL:        30 * 24 * time.Hour,
		RenderWidth:       80,
		Addr:              ":8080",
		DatabasePath:      "dmview.db",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.StoreURL != "" {
		c.StoreURL = other.StoreURL
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.SessionPath != "" {
		c.SessionPath = other.SessionPath
	}
	if other.SessionSecret != "" {
		c.SessionSecret = other.SessionSecret
	}
	if other.SessionIssuer != "" {
		c.SessionIssuer = other.SessionIssuer
	}
	if other.SessionAudience != "" {
		c.SessionAudience = other.SessionAudience
	}
	if other.SessionTTL != 0 {
		c.SessionTTL = other.SessionTTL
	}
	if other.RenderWidth != 0 {
		c.RenderWidth = other.RenderWidth
	}
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteRateLimit != 0 {
		c.WriteRateLimit = other.WriteRateLimit
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".dmview", "session")
	}
	return filepath.Join(dir, "dmview", "session")
}
