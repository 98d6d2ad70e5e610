// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package config loads Honeytrace configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables,
// each layer overriding the one below.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/honeytrace/config.yaml",
	"/etc/honeytrace/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HONEYTRACE_CONFIG_PATH"

// envPrefix namespaces Honeytrace environment variables:
// HONEYTRACE_SERVER_PORT -> server.port.
const envPrefix = "HONEYTRACE_"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Store    StoreConfig    `koanf:"store"`
	AWS      AWSConfig      `koanf:"aws"`
	NATS     NATSConfig     `koanf:"nats"`
	Alert    AlertConfig    `koanf:"alert"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig configures the management HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig configures the Badger store.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// AWSConfig configures the IAM identity provider.
type AWSConfig struct {
	Region    string `koanf:"region"`
	GroupName string `koanf:"group_name"`
	TagKey    string `koanf:"tag_key"`
}

// NATSConfig configures the message bus.
type NATSConfig struct {
	URL                string        `koanf:"url"`
	DurableName        string        `koanf:"durable_name"`
	QueueGroup         string        `koanf:"queue_group"`
	RouterRetryCount   int           `koanf:"router_retry_count"`
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
	PoisonQueueTopic   string        `koanf:"poison_queue_topic"`
}

// AlertConfig configures alert deduplication and delivery.
type AlertConfig struct {
	// CooldownSeconds is the suppression window: 0 alerts on every
	// event, -1 alerts once per credential, positive values are a
	// sliding window in seconds.
	CooldownSeconds int64 `koanf:"cooldown_seconds"`

	WebhookEnabled     bool              `koanf:"webhook_enabled"`
	WebhookURL         string            `koanf:"webhook_url"`
	WebhookHeaders     map[string]string `koanf:"webhook_headers"`
	WebhookRateLimitMs int               `koanf:"webhook_rate_limit_ms"`
}

// SecurityConfig configures management API access.
type SecurityConfig struct {
	// ProvisionKey bootstraps the first admin key. Empty disables
	// bootstrap.
	ProvisionKey string `koanf:"provision_key"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns the built-in defaults, overridden by config file
// and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8422,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Path:     "/data/honeytrace",
			InMemory: false,
		},
		AWS: AWSConfig{
			Region:    "us-east-1",
			GroupName: "honeytrace-users",
			TagKey:    "honeytrace",
		},
		NATS: NATSConfig{
			URL:                "nats://127.0.0.1:4222",
			DurableName:        "honeytrace",
			QueueGroup:         "honeytrace-workers",
			RouterRetryCount:   3,
			RouterCloseTimeout: 30 * time.Second,
			PoisonQueueTopic:   "honeytoken.poison",
		},
		Alert: AlertConfig{
			CooldownSeconds:    1800,
			WebhookEnabled:     false,
			WebhookURL:         "",
			WebhookRateLimitMs: 500,
		},
		Security: SecurityConfig{
			ProvisionKey:    "",
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and the environment, then validates it.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// loadFrom loads with an explicit config file path ("" for none).
func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the type system can't.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Alert.CooldownSeconds < -1 {
		return fmt.Errorf("alert.cooldown_seconds %d must be -1, 0, or positive", c.Alert.CooldownSeconds)
	}
	if c.Alert.WebhookEnabled && c.Alert.WebhookURL == "" {
		return fmt.Errorf("alert.webhook_url is required when alert.webhook_enabled is set")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	return nil
}

// findConfigFile resolves the config file path from the environment or
// the default search paths. Empty when nothing is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps HONEYTRACE_SECTION_SOME_KEY to section.some_key.
// Sections are single words, so only the first underscore becomes a dot.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}
