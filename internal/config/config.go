// Package config loads toolkit configuration from an optional YAML file
// overridden by environment variables. `.env` files are loaded by the
// entrypoints via godotenv before this runs.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Store       StoreConfig       `koanf:"store"`
	Targets     TargetsConfig     `koanf:"targets"`
	Webhook     WebhookConfig     `koanf:"webhook"`
	LogFunction LogFunctionConfig `koanf:"log_function"`
	Server      ServerConfig      `koanf:"server"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// StoreConfig selects the event-log database.
type StoreConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres
	DSN    string `koanf:"dsn"`
}

// TargetsConfig holds the replay entrypoint base URLs per environment.
type TargetsConfig struct {
	Staging TargetConfig `koanf:"staging"`
	Local   TargetConfig `koanf:"local"`
}

type TargetConfig struct {
	BaseURL string `koanf:"base_url"`
}

// WebhookConfig holds credentials for the replay entrypoints.
type WebhookConfig struct {
	APIKey string `koanf:"api_key"` // sent as X-API-Key when set
}

// LogFunctionConfig points at the hosted event-log ingest function.
type LogFunctionConfig struct {
	URL        string `koanf:"url"`
	ServiceKey string `koanf:"service_key"` // bearer credential
}

// ServerConfig configures the local eventlogd server.
type ServerConfig struct {
	Port int `koanf:"port"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// envKeys maps the environment surface (names kept from the deployed
// pipeline's tooling) onto config keys. Unlisted variables are ignored.
var envKeys = map[string]string{
	"STAGING_ENTRYPOINT_URL": "targets.staging.base_url",
	"LOCAL_ENTRYPOINT_URL":   "targets.local.base_url",
	"WEBHOOK_API_KEY":        "webhook.api_key",
	"LOG_FUNCTION_URL":       "log_function.url",
	"SERVICE_ROLE_KEY":       "log_function.service_key",
	"EVENT_STORE_DRIVER":     "store.driver",
	"EVENT_STORE_DSN":        "store.dsn",
	"EVENTLOGD_PORT":         "server.port",
	"OTEL_STDOUT_TRACE":      "telemetry.enabled",
}

// Load reads configuration. path may be empty; when set it must point at
// a YAML file. Environment variables always win over file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s] // empty string skips the variable
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Default values
	if !k.Exists("store.driver") {
		k.Set("store.driver", "sqlite")
	}
	if !k.Exists("store.dsn") {
		k.Set("store.dsn", "./data/events.db")
	}
	if !k.Exists("server.port") {
		k.Set("server.port", 8787)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
