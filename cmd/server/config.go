// Package main provides the CrowdWatch server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Policy        PolicyConfig        `yaml:"policy"`
	API           APIConfig           `yaml:"api"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Verbose       bool                `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string    `yaml:"address"` // HTTP listen address (default: :8080)
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// PolicyConfig points at the alert policy file.
type PolicyConfig struct {
	File string `yaml:"file"` // optional; defaults apply when empty
	// Watch reloads the policy file on change.
	Watch bool `yaml:"watch"`
}

// NotificationsConfig controls external alert channels. All channels
// are optional; alerts always reach API clients and WebSocket
// subscribers regardless.
type NotificationsConfig struct {
	// MaxPerMinute rate limits outbound notifications (default: 10).
	MaxPerMinute int               `yaml:"max_per_minute"`
	Slack        SlackNotifyConfig `yaml:"slack"`
	Email        EmailNotifyConfig `yaml:"email"`
}

// SlackNotifyConfig configures the Slack webhook channel.
type SlackNotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// EmailNotifyConfig configures the SMTP channel.
type EmailNotifyConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// APIConfig contains API behavior settings. Durations use Go syntax.
type APIConfig struct {
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RateLimitPerIP   int    `yaml:"rate_limit_per_ip"`
	RateLimitPerUser int    `yaml:"rate_limit_per_user"`
	LockoutThreshold int    `yaml:"lockout_threshold"`
	LockoutDuration  string `yaml:"lockout_duration"`
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
	if c.Database.Path == "" {
		c.Database.Path = "data/crowdwatch.db"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.API.AccessTokenTTL == "" {
		c.API.AccessTokenTTL = "15m"
	}
	if c.API.LockoutDuration == "" {
		c.API.LockoutDuration = "30m"
	}
	if c.Notifications.MaxPerMinute == 0 {
		c.Notifications.MaxPerMinute = 10
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if _, err := time.ParseDuration(c.API.AccessTokenTTL); err != nil {
		return fmt.Errorf("api.access_token_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.API.LockoutDuration); err != nil {
		return fmt.Errorf("api.lockout_duration: %w", err)
	}
	if c.Policy.Watch && c.Policy.File == "" {
		return fmt.Errorf("policy.file is required when policy.watch is enabled")
	}
	return nil
}

// AccessTokenTTL returns the parsed token TTL. Validate must have
// passed.
func (c *Config) AccessTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.API.AccessTokenTTL)
	return d
}

// LockoutDuration returns the parsed lockout duration. Validate must
// have passed.
func (c *Config) LockoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.API.LockoutDuration)
	return d
}
