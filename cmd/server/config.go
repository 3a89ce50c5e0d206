// Package main provides the PulseWatch server CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Risk     RiskConfig     `yaml:"risk"`
	Notify   NotifyConfig   `yaml:"notify"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address            string    `yaml:"address"`               // HTTP listen address (default: :8080)
	RateLimitPerMinute int       `yaml:"rate_limit_per_minute"` // per-IP request budget
	TLS                TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig contains escalation store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // sqlite database file
}

// RiskConfig points at the domain risk configuration file.
type RiskConfig struct {
	ConfigPath string `yaml:"config_path"` // YAML with weights, thresholds, SLAs, triggers; empty uses built-in defaults
	HotReload  bool   `yaml:"hot_reload"`  // watch the file and reload on change
}

// NotifyConfig selects notification channels for new escalations.
type NotifyConfig struct {
	MaxPerMinute int               `yaml:"max_per_minute"` // notification rate limit (default: 20)
	Slack        SlackNotifyConfig `yaml:"slack"`
	Email        EmailNotifyConfig `yaml:"email"`
}

// SlackNotifyConfig configures the Slack webhook channel.
type SlackNotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// EmailNotifyConfig configures the SMTP channel.
type EmailNotifyConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 120
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/pulsewatch.db"
	}
	if c.Notify.MaxPerMinute == 0 {
		c.Notify.MaxPerMinute = 20
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Notify.Slack.Enabled {
		if !strings.HasPrefix(c.Notify.Slack.WebhookURL, "https://") {
			return fmt.Errorf("notify.slack.webhook_url must be an HTTPS URL")
		}
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" || c.Notify.Email.From == "" || len(c.Notify.Email.Recipients) == 0 {
			return fmt.Errorf("notify.email requires host, from, and recipients")
		}
	}
	return nil
}
