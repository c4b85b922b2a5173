// Package config provides configuration for the proxy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the proxy configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Upstream
	AnthropicAPIKey  string
	APIBaseURL       string
	AnthropicVersion string
	UpstreamTimeout  time.Duration
	ProxyMode        string

	// Request defaults
	DefaultModel       string
	VisionModel        string
	DefaultMaxTokens   int
	DefaultTemperature float64

	// Access
	AllowedAPIKeys []string

	// Sessions
	SessionBackend     string
	SessionPath        string
	DatabaseURL        string
	SessionTTL         time.Duration
	SessionMaxMessages int
	HistoryWindow      int

	// Logging
	LogLevel string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 8787)
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("API_BASE_URL", "https://api.anthropic.com/v1/messages")
	v.SetDefault("ANTHROPIC_VERSION", "2023-06-01")
	v.SetDefault("UPSTREAM_TIMEOUT_MS", 0)
	v.SetDefault("PROXY_MODE", "")
	v.SetDefault("DEFAULT_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("VISION_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("DEFAULT_MAX_TOKENS", 4096)
	v.SetDefault("DEFAULT_TEMPERATURE", 0.7)
	v.SetDefault("ALLOWED_API_KEYS", "")
	v.SetDefault("SESSION_BACKEND", BackendBadger)
	v.SetDefault("SESSION_PATH", "")
	v.SetDefault("DATABASE_URL", "file:sessions.db?cache=shared&mode=rwc")
	v.SetDefault("SESSION_TTL_SECONDS", 86400)
	v.SetDefault("SESSION_MAX_MESSAGES", 50)
	v.SetDefault("HISTORY_WINDOW", 10)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from environment variables and, when configFile
// is set, from that file. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPPort:           v.GetInt("HTTP_PORT"),
		AnthropicAPIKey:    v.GetString("ANTHROPIC_API_KEY"),
		APIBaseURL:         v.GetString("API_BASE_URL"),
		AnthropicVersion:   v.GetString("ANTHROPIC_VERSION"),
		UpstreamTimeout:    time.Duration(v.GetInt("UPSTREAM_TIMEOUT_MS")) * time.Millisecond,
		ProxyMode:          v.GetString("PROXY_MODE"),
		DefaultModel:       v.GetString("DEFAULT_MODEL"),
		VisionModel:        v.GetString("VISION_MODEL"),
		DefaultMaxTokens:   v.GetInt("DEFAULT_MAX_TOKENS"),
		DefaultTemperature: v.GetFloat64("DEFAULT_TEMPERATURE"),
		AllowedAPIKeys:     splitList(v.GetString("ALLOWED_API_KEYS")),
		SessionBackend:     strings.ToLower(v.GetString("SESSION_BACKEND")),
		SessionPath:        v.GetString("SESSION_PATH"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		SessionTTL:         time.Duration(v.GetInt("SESSION_TTL_SECONDS")) * time.Second,
		SessionMaxMessages: v.GetInt("SESSION_MAX_MESSAGES"),
		HistoryWindow:      v.GetInt("HISTORY_WINDOW"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	switch c.SessionBackend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.SessionMaxMessages <= 0 {
		return fmt.Errorf("SESSION_MAX_MESSAGES must be positive")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_MS must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
