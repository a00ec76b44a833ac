// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from config.yaml.
// Secrets (tokens, API keys) may be left empty in the file and supplied via
// environment variables instead.
type Config struct {
	Slack    SlackConfig    `yaml:"slack"`
	HTTP     HTTPConfig     `yaml:"http"`
	Registry RegistryConfig `yaml:"registry"`
	Router   RouterConfig   `yaml:"router"`
	Backend  BackendConfig  `yaml:"backend"`
	Audit    AuditConfig    `yaml:"audit"`
	Digest   DigestConfig   `yaml:"digest"`
}

// SlackConfig holds Slack credentials and the transport mode.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`      // xoxb-..., env SLACK_BOT_TOKEN
	AppToken      string `yaml:"app_token"`      // xapp-..., env SLACK_APP_TOKEN (socket mode)
	SigningSecret string `yaml:"signing_secret"` // env SLACK_SIGNING_SECRET (http mode)
	SocketMode    bool   `yaml:"socket_mode"`
}

// HTTPConfig holds the Events API server settings (http mode only).
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RegistryConfig selects the active-thread registry backend.
type RegistryConfig struct {
	Backend          string `yaml:"backend"`   // "local" or "redis"
	RedisURL         string `yaml:"redis_url"` // env REDIS_URL
	ThreadTTLSeconds int    `yaml:"thread_ttl_seconds"`
}

// RouterConfig holds the routing and response behavior knobs.
type RouterConfig struct {
	MaxHistory             int    `yaml:"max_history"`
	TerminationKeyword     string `yaml:"termination_keyword"`
	FallbackMessage        string `yaml:"fallback_message"`
	ClosingMessage         string `yaml:"closing_message"`
	AckEmoji               string `yaml:"ack_emoji"`
	ResponseTimeoutSeconds int    `yaml:"response_timeout_seconds"`
}

// BackendConfig selects and configures the response backend.
type BackendConfig struct {
	Provider string `yaml:"provider"` // "gemini"
	APIKey   string `yaml:"api_key"`  // env GEMINI_API_KEY
	Model    string `yaml:"model"`
}

// AuditConfig configures the optional routing audit store.
type AuditConfig struct {
	Driver     string      `yaml:"driver"` // "", "sqlite" or "mysql"
	SQLitePath string      `yaml:"sqlite_path"`
	MySQL      MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings for a MySQL audit store.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
}

// DigestConfig configures the scheduled activity digest.
type DigestConfig struct {
	Schedule  string `yaml:"schedule"` // 5-field cron expression, empty disables
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path, applies environment overrides,
// and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals YAML bytes into a Config with defaults applied. Unlike
// Load it performs no env lookups and no validation, so tests can build
// partial configs.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = "local"
	}
	if c.Registry.ThreadTTLSeconds == 0 {
		c.Registry.ThreadTTLSeconds = 3600
	}
	if c.Router.MaxHistory == 0 {
		c.Router.MaxHistory = 20
	}
	if c.Router.TerminationKeyword == "" {
		c.Router.TerminationKeyword = "bye"
	}
	if c.Router.FallbackMessage == "" {
		c.Router.FallbackMessage = "Sorry, I couldn't come up with an answer. Please try again."
	}
	if c.Router.ClosingMessage == "" {
		c.Router.ClosingMessage = "Okay, closing this thread. Mention me if you need anything else."
	}
	if c.Router.AckEmoji == "" {
		c.Router.AckEmoji = "eyes"
	}
	if c.Router.ResponseTimeoutSeconds == 0 {
		c.Router.ResponseTimeoutSeconds = 60
	}
	if c.Backend.Provider == "" {
		c.Backend.Provider = "gemini"
	}
	if c.Backend.Model == "" {
		c.Backend.Model = "gemini-2.0-flash"
	}
	if c.Audit.Driver == "sqlite" && c.Audit.SQLitePath == "" {
		c.Audit.SQLitePath = "switchboard.db"
	}
	if c.Audit.MySQL.Host == "" {
		c.Audit.MySQL.Host = "127.0.0.1"
	}
	if c.Audit.MySQL.Port == 0 {
		c.Audit.MySQL.Port = 3306
	}
	if c.Audit.MySQL.User == "" {
		c.Audit.MySQL.User = "root"
	}
}

// applyEnv overrides secrets from the environment when set.
func (c *Config) applyEnv() {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_APP_TOKEN"); v != "" {
		c.Slack.AppToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		c.Slack.SigningSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Registry.RedisURL = v
	}
}

// Validate checks that all required fields are present and consistent.
func (c *Config) Validate() error {
	var errs []string
	if c.Slack.BotToken == "" {
		errs = append(errs, "slack.bot_token is required")
	}
	if c.Slack.SocketMode && c.Slack.AppToken == "" {
		errs = append(errs, "slack.app_token is required in socket mode")
	}
	if !c.Slack.SocketMode && c.Slack.SigningSecret == "" {
		errs = append(errs, "slack.signing_secret is required in http mode")
	}
	switch c.Registry.Backend {
	case "local":
	case "redis":
		if c.Registry.RedisURL == "" {
			errs = append(errs, "registry.redis_url is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("registry.backend %q is not one of local, redis", c.Registry.Backend))
	}
	if c.Registry.ThreadTTLSeconds < 0 {
		errs = append(errs, "registry.thread_ttl_seconds must be positive")
	}
	switch c.Backend.Provider {
	case "gemini":
		if c.Backend.APIKey == "" {
			errs = append(errs, "backend.api_key is required for the gemini provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("backend.provider %q is not supported", c.Backend.Provider))
	}
	switch c.Audit.Driver {
	case "", "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("audit.driver %q is not one of sqlite, mysql", c.Audit.Driver))
	}
	if c.Digest.Schedule != "" && c.Digest.ChannelID == "" {
		errs = append(errs, "digest.channel_id is required when digest.schedule is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
