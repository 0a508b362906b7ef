// Package config provides YAML-based configuration loading for Herald.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Herald configuration, loaded from herald.yaml.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Scanner   ScannerConfig    `yaml:"scanner"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
	Broadcast BroadcastConfig  `yaml:"broadcast"`
	Relay     RelayConfig      `yaml:"relay"`
	Templates []TemplateConfig `yaml:"templates"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds connection settings. Driver is "mysql" or "sqlite";
// sqlite uses Path, mysql uses Host/Port/Database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`
}

// ScannerConfig holds trigger scanner settings.
type ScannerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// RateLimitConfig holds sliding-window admission control settings. Endpoints
// maps an endpoint name to its per-window limit; unlisted endpoints use
// DefaultLimit.
type RateLimitConfig struct {
	WindowSeconds int            `yaml:"window_seconds"`
	DefaultLimit  int            `yaml:"default_limit"`
	Endpoints     map[string]int `yaml:"endpoints"`
}

// BroadcastConfig holds push connection settings.
type BroadcastConfig struct {
	BufferCapacity   int `yaml:"buffer_capacity"`
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
}

// RelayConfig configures optional mirroring of delivered messages to chat
// channels. A relay target is enabled when its token is non-empty.
type RelayConfig struct {
	MinPriority int                `yaml:"min_priority"`
	Slack       SlackRelayConfig   `yaml:"slack"`
	Discord     DiscordRelayConfig `yaml:"discord"`
}

// SlackRelayConfig holds Slack relay credentials.
type SlackRelayConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordRelayConfig holds Discord relay credentials.
type DiscordRelayConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// TemplateConfig defines a seedable dialogue template.
type TemplateConfig struct {
	Key    string        `yaml:"key"`
	Blocks []BlockConfig `yaml:"blocks"`
}

// BlockConfig is one content block within a template.
type BlockConfig struct {
	Speaker string         `yaml:"speaker"`
	Avatar  string         `yaml:"avatar"`
	Text    string         `yaml:"text"`
	Buttons []ButtonConfig `yaml:"buttons"`
}

// ButtonConfig is an optional action attached to a block.
type ButtonConfig struct {
	Label  string `yaml:"label"`
	Action string `yaml:"action"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "herald.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Database == "" {
		c.Database.Database = "herald"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Scanner.PollIntervalSeconds == 0 {
		c.Scanner.PollIntervalSeconds = 10
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.RateLimit.DefaultLimit == 0 {
		c.RateLimit.DefaultLimit = 60
	}
	if c.Broadcast.BufferCapacity == 0 {
		c.Broadcast.BufferCapacity = 100
	}
	if c.Broadcast.HeartbeatSeconds == 0 {
		c.Broadcast.HeartbeatSeconds = 30
	}
	if c.Relay.MinPriority == 0 {
		c.Relay.MinPriority = 5
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Scanner.PollIntervalSeconds < 0 {
		errs = append(errs, "scanner.poll_interval_seconds must be positive")
	}
	for name, limit := range c.RateLimit.Endpoints {
		if limit <= 0 {
			errs = append(errs, fmt.Sprintf("rate_limit.endpoints[%s] must be positive", name))
		}
	}
	for i, tpl := range c.Templates {
		if tpl.Key == "" {
			errs = append(errs, fmt.Sprintf("templates[%d].key is required", i))
		}
		if len(tpl.Blocks) == 0 {
			errs = append(errs, fmt.Sprintf("templates[%d].blocks must not be empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the scanner poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scanner.PollIntervalSeconds) * time.Second
}

// Window returns the rate-limit window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// Heartbeat returns the push heartbeat interval as a duration.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.Broadcast.HeartbeatSeconds) * time.Second
}

// EndpointLimit returns the per-window limit for an endpoint, falling back
// to the default limit.
func (c *Config) EndpointLimit(endpoint string) int {
	if limit, ok := c.RateLimit.Endpoints[endpoint]; ok {
		return limit
	}
	return c.RateLimit.DefaultLimit
}
