// Package config loads the YAML bot configuration and constructs the
// transport it selects.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miraigo/miraigo/adapter"
)

// EnvConfigPath names the environment variable that overrides the
// config search when no explicit path is given.
const EnvConfigPath = "MIRAIGO_CONFIG"

// Locate resolves the bot's config file. Resolution order: the
// explicit path (which must exist when given), $MIRAIGO_CONFIG, then
// miraigo.yaml and config.yaml in the working directory, the user
// config directory, and finally /etc/miraigo.
func Locate(explicit string) (string, error) {
	for _, required := range []string{explicit, os.Getenv(EnvConfigPath)} {
		if required == "" {
			continue
		}
		if _, err := os.Stat(required); err != nil {
			return "", fmt.Errorf("config file %s: %w", required, err)
		}
		return required, nil
	}

	candidates := []string{"miraigo.yaml", "config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "miraigo", "config.yaml"))
	}
	candidates = append(candidates, filepath.Join("/etc", "miraigo", "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no config file found; pass -config, set $%s, or create one of %v", EnvConfigPath, candidates)
}

// Config holds all bot configuration.
type Config struct {
	QQ       int64         `yaml:"qq"`
	Adapter  AdapterConfig `yaml:"adapter"`
	Listen   ListenConfig  `yaml:"listen"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the web front-end settings used by webhook
// adapters and bot.Run.
type ListenConfig struct {
	// Address is the bind address; empty binds all interfaces.
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// AdapterConfig selects and parameterizes a transport.
type AdapterConfig struct {
	// Kind is one of "http", "websocket", "webhook", "composite".
	Kind       string `yaml:"kind"`
	VerifyKey  string `yaml:"verify_key"`
	SingleMode bool   `yaml:"single_mode"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// PollIntervalSec applies to the http kind. Default 1.0.
	PollIntervalSec float64 `yaml:"poll_interval"`

	// SyncID and HeartbeatSec apply to the websocket kind.
	SyncID       string  `yaml:"sync_id"`
	HeartbeatSec float64 `yaml:"heartbeat_interval"`

	// Route, ExtraHeaders and EnableQuickResponse apply to the
	// webhook kind.
	Route               string            `yaml:"route"`
	ExtraHeaders        map[string]string `yaml:"extra_headers"`
	EnableQuickResponse *bool             `yaml:"enable_quick_response"`

	// APIChannel and EventChannel apply to the composite kind.
	APIChannel   *AdapterConfig `yaml:"api_channel"`
	EventChannel *AdapterConfig `yaml:"event_channel"`
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.QQ == 0 {
		return nil, fmt.Errorf("config %s: qq is required", path)
	}
	return &cfg, nil
}

// BuildAdapter constructs the configured transport. Webhook and
// composite configurations register routes on the given server.
func (c *AdapterConfig) BuildAdapter(server *adapter.WebServer, logger *slog.Logger) (adapter.Adapter, error) {
	switch c.Kind {
	case "http", "http-poll":
		return adapter.NewHTTP(adapter.HTTPConfig{
			VerifyKey:    c.VerifyKey,
			Host:         c.Host,
			Port:         c.Port,
			PollInterval: secondsOrZero(c.PollIntervalSec),
			SingleMode:   c.SingleMode,
			Logger:       logger,
		})
	case "websocket", "ws":
		return adapter.NewWebSocket(adapter.WSConfig{
			VerifyKey:         c.VerifyKey,
			Host:              c.Host,
			Port:              c.Port,
			SyncID:            c.SyncID,
			HeartbeatInterval: secondsOrZero(c.HeartbeatSec),
			Logger:            logger,
		})
	case "webhook":
		if server == nil {
			return nil, fmt.Errorf("webhook adapter requires a web server")
		}
		return adapter.NewWebhook(adapter.WebhookConfig{
			VerifyKey:           c.VerifyKey,
			Route:               c.Route,
			ExtraHeaders:        c.ExtraHeaders,
			EnableQuickResponse: c.EnableQuickResponse,
			SingleMode:          c.SingleMode,
			Logger:              logger,
		}, server), nil
	case "composite", "compose":
		if c.APIChannel == nil || c.EventChannel == nil {
			return nil, fmt.Errorf("composite adapter requires api_channel and event_channel")
		}
		apiChannel, err := c.APIChannel.BuildAdapter(server, logger)
		if err != nil {
			return nil, err
		}
		eventChannel, err := c.EventChannel.BuildAdapter(server, logger)
		if err != nil {
			return nil, err
		}
		return adapter.NewCompose(apiChannel, eventChannel)
	default:
		return nil, fmt.Errorf("unknown adapter kind %q (valid: http, websocket, webhook, composite)", c.Kind)
	}
}

func secondsOrZero(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
