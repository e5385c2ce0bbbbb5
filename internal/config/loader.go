package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "DMVIEW"
	envConfigDefaultPath = "DMVIEW_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars (.env included) < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) && logger != nil {
		logger.Warn().Err(err).Msg("failed to load .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Debug().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("store_url", cfg.StoreURL)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("session_path", cfg.SessionPath)
	v.SetDefault("session_secret", cfg.SessionSecret)
	v.SetDefault("session_issuer", cfg.SessionIssuer)
	v.SetDefault("session_audience", cfg.SessionAudience)
	v.SetDefault("session_ttl", cfg.SessionTTL)
	v.SetDefault("render_width", cfg.RenderWidth)
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("write_rate_limit", cfg.WriteRateLimit)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

// fileConfig is the on-disk shape; durations are written as strings so the file stays editable.
type fileConfig struct {
	StoreURL          string `yaml:"store_url"`
	PollInterval      string `yaml:"poll_interval"`
	RequestTimeout    string `yaml:"request_timeout"`
	LogLevel          string `yaml:"log_level"`
	SessionPath       string `yaml:"session_path"`
	SessionSecret     string `yaml:"session_secret"`
	SessionIssuer     string `yaml:"session_issuer"`
	SessionAudience   string `yaml:"session_audience"`
	SessionTTL        string `yaml:"session_ttl"`
	RenderWidth       int    `yaml:"render_width"`
	Addr              string `yaml:"addr"`
	DatabasePath      string `yaml:"database_path"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
	WriteRateLimit    int    `yaml:"write_rate_limit"`
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(fileConfig{
		StoreURL:          cfg.StoreURL,
		PollInterval:      cfg.PollInterval.String(),
		RequestTimeout:    cfg.RequestTimeout.String(),
		LogLevel:          cfg.LogLevel,
		SessionPath:       cfg.SessionPath,
		SessionSecret:     cfg.SessionSecret,
		SessionIssuer:     cfg.SessionIssuer,
		SessionAudience:   cfg.SessionAudience,
		SessionTTL:        cfg.SessionTTL.String(),
		RenderWidth:       cfg.RenderWidth,
		Addr:              cfg.Addr,
		DatabasePath:      cfg.DatabasePath,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.String(),
		ShutdownTimeout:   cfg.ShutdownTimeout.String(),
		WriteRateLimit:    cfg.WriteRateLimit,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
