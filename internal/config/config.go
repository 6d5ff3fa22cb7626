package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "INFLUENCERPY_CONFIG"
	databasePathEnv   = "INFLUENCERPY_DB"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	geminiModelEnv    = "GEMINI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	searchEndpointEnv = "SEARCH_API_URL"
	searchAPIKeyEnv   = "SEARCH_API_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Notifications NotificationConfig `yaml:"notifications"`
	Search        SearchConfig       `yaml:"search"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the sqlite file backing the ledger and stores.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when scheduled scouts should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GeminiConfig defines how to contact the generation engine.
type GeminiConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send review messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SearchConfig points the search adapter at its backing API.
type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// PipelineConfig tunes timeouts and retry bounds for scout runs.
type PipelineConfig struct {
	AdapterTimeoutSeconds int `yaml:"adapterTimeoutSeconds"`
	EngineTimeoutSeconds  int `yaml:"engineTimeoutSeconds"`
	SourceRetries         int `yaml:"sourceRetries"`
	EngineRetries         int `yaml:"engineRetries"`
	MaxScoutingItems      int `yaml:"maxScoutingItems"`
}

// AdapterTimeout returns the per-fetch timeout; it is deliberately shorter
// than the engine timeout.
func (p PipelineConfig) AdapterTimeout() time.Duration {
	return time.Duration(p.AdapterTimeoutSeconds) * time.Second
}

// EngineTimeout returns the per-invocation engine timeout.
func (p PipelineConfig) EngineTimeout() time.Duration {
	return time.Duration(p.EngineTimeoutSeconds) * time.Second
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(searchEndpointEnv); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv(searchAPIKeyEnv); v != "" {
		c.Search.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Search.Endpoint != "" {
		base.Search.Endpoint = override.Search.Endpoint
	}
	if override.Search.APIKey != "" {
		base.Search.APIKey = override.Search.APIKey
	}

	if override.Pipeline.AdapterTimeoutSeconds > 0 {
		base.Pipeline.AdapterTimeoutSeconds = override.Pipeline.AdapterTimeoutSeconds
	}
	if override.Pipeline.EngineTimeoutSeconds > 0 {
		base.Pipeline.EngineTimeoutSeconds = override.Pipeline.EngineTimeoutSeconds
	}
	if override.Pipeline.SourceRetries > 0 {
		base.Pipeline.SourceRetries = override.Pipeline.SourceRetries
	}
	if override.Pipeline.EngineRetries > 0 {
		base.Pipeline.EngineRetries = override.Pipeline.EngineRetries
	}
	if override.Pipeline.MaxScoutingItems > 0 {
		base.Pipeline.MaxScoutingItems = override.Pipeline.MaxScoutingItems
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Path: "influencerpy.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Search: SearchConfig{},
		Pipeline: PipelineConfig{
			AdapterTimeoutSeconds: 30,
			EngineTimeoutSeconds:  120,
			SourceRetries:         2,
			EngineRetries:         2,
			MaxScoutingItems:      10,
		},
	}
}
