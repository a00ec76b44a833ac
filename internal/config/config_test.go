package config

import (
	"strings"
	"testing"
)

const minimalYAML = `
slack:
  bot_token: xoxb-test
  app_token: xapp-test
  socket_mode: true
backend:
  api_key: key-123
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Registry.Backend != "local" {
		t.Errorf("registry backend = %q, want local", cfg.Registry.Backend)
	}
	if cfg.Registry.ThreadTTLSeconds != 3600 {
		t.Errorf("thread ttl = %d, want 3600", cfg.Registry.ThreadTTLSeconds)
	}
	if cfg.Router.MaxHistory != 20 {
		t.Errorf("max history = %d, want 20", cfg.Router.MaxHistory)
	}
	if cfg.Router.AckEmoji != "eyes" {
		t.Errorf("ack emoji = %q, want eyes", cfg.Router.AckEmoji)
	}
	if cfg.Router.FallbackMessage == "" {
		t.Error("expected default fallback message")
	}
	if cfg.Backend.Model != "gemini-2.0-flash" {
		t.Errorf("backend model = %q, want gemini-2.0-flash", cfg.Backend.Model)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q, want :8080", cfg.HTTP.Addr)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("slack: [not a map]")); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid socket mode",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing bot token",
			mutate:  func(c *Config) { c.Slack.BotToken = "" },
			wantErr: "bot_token",
		},
		{
			name:    "socket mode without app token",
			mutate:  func(c *Config) { c.Slack.AppToken = "" },
			wantErr: "app_token",
		},
		{
			name: "http mode without signing secret",
			mutate: func(c *Config) {
				c.Slack.SocketMode = false
				c.Slack.SigningSecret = ""
			},
			wantErr: "signing_secret",
		},
		{
			name:    "redis backend without url",
			mutate:  func(c *Config) { c.Registry.Backend = "redis" },
			wantErr: "redis_url",
		},
		{
			name: "redis backend with url",
			mutate: func(c *Config) {
				c.Registry.Backend = "redis"
				c.Registry.RedisURL = "redis://localhost:6379/0"
			},
		},
		{
			name:    "unknown registry backend",
			mutate:  func(c *Config) { c.Registry.Backend = "dynamo" },
			wantErr: "registry.backend",
		},
		{
			name:    "unknown audit driver",
			mutate:  func(c *Config) { c.Audit.Driver = "oracle" },
			wantErr: "audit.driver",
		},
		{
			name:    "digest schedule without channel",
			mutate:  func(c *Config) { c.Digest.Schedule = "0 9 * * *" },
			wantErr: "digest.channel_id",
		},
		{
			name:    "gemini without api key",
			mutate:  func(c *Config) { c.Backend.APIKey = "" },
			wantErr: "backend.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(minimalYAML))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
