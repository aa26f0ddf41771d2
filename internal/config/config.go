package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Registry RegistryConfig `yaml:"registry"`
	Collect  CollectConfig  `yaml:"collect"`
	Train    TrainConfig    `yaml:"train"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig configures the item registry artifact.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// CollectConfig holds configuration for all scrapers.
type CollectConfig struct {
	Steam   SteamConfig   `yaml:"steam"`
	Players PlayersConfig `yaml:"players"`
	Events  EventsConfig  `yaml:"events"`
}

// SteamConfig for the Steam Market price collector.
type SteamConfig struct {
	Enabled      bool `yaml:"enabled"`
	AppID        int  `yaml:"app_id"`
	LookbackDays int  `yaml:"lookback_days"`
	DelaySeconds int  `yaml:"delay_seconds"`
}

// PlayersConfig for the concurrent-players collector.
type PlayersConfig struct {
	Enabled      bool `yaml:"enabled"`
	AppID        int  `yaml:"app_id"`
	LookbackDays int  `yaml:"lookback_days"`
}

// EventsConfig for the S-tier tournament collector.
type EventsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Page         string `yaml:"page"`
	LookbackDays int    `yaml:"lookback_days"`
}

// TrainConfig configures training and evaluation.
type TrainConfig struct {
	Trees        int     `yaml:"trees"`
	MaxDepth     int     `yaml:"max_depth"`
	LearningRate float64 `yaml:"learning_rate"`
	MinLeaf      int     `yaml:"min_leaf"`
	Bins         int     `yaml:"bins"`
	TestFraction float64 `yaml:"test_fraction"`
	ModelDir     string  `yaml:"model_dir"`
}

// AlertsConfig configures price-move alert destinations.
type AlertsConfig struct {
	// ThresholdPct is the minimum absolute predicted next-day move, in
	// percent, that triggers a notification.
	ThresholdPct float64       `yaml:"threshold_pct"`
	Slack        SlackConfig   `yaml:"slack"`
	Discord      DiscordConfig `yaml:"discord"`
	Webhook      WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ScheduleConfig configures the daemon's collection and rebuild cadence.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
	RebuildInterval string `yaml:"rebuild_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// ParseRebuildInterval returns the rebuild interval as time.Duration.
func (s ScheduleConfig) ParseRebuildInterval() time.Duration {
	d, err := time.ParseDuration(s.RebuildInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./caseradar.db"},
		Registry: RegistryConfig{Path: "./registry.json"},
		Collect: CollectConfig{
			Steam:   SteamConfig{Enabled: true, AppID: 730, LookbackDays: 365, DelaySeconds: 7},
			Players: PlayersConfig{Enabled: true, AppID: 730, LookbackDays: 365},
			Events:  EventsConfig{Enabled: true, LookbackDays: 365},
		},
		Train: TrainConfig{
			Trees:        200,
			MaxDepth:     4,
			LearningRate: 0.05,
			MinLeaf:      5,
			Bins:         32,
			TestFraction: 0.2,
			ModelDir:     "./models",
		},
		Alerts: AlertsConfig{ThresholdPct: 5},
		Schedule: ScheduleConfig{
			CollectInterval: "24h",
			RebuildInterval: "24h",
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASERADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CASERADAR_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("CASERADAR_MODEL_DIR"); v != "" {
		cfg.Train.ModelDir = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
