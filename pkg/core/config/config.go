package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "LENDBOT_CONFIG"

// Config holds the complete application configuration
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Bot       BotConfig       `toml:"bot"`
	Database  DatabaseConfig  `toml:"database"`
	Responses ResponsesConfig `toml:"responses"`
	Health    HealthConfig    `toml:"health"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	DataDir     string `toml:"data_dir"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
}

// BotConfig holds the polling and reply settings of the bot
type BotConfig struct {
	// Account the bot posts as; its own messages are ignored
	Username        string   `toml:"username"`
	PollInterval    Duration `toml:"poll_interval"`
	Inbox           string   `toml:"inbox"`
	Outbox          string   `toml:"outbox"`
	ReplyAttempts   int      `toml:"reply_attempts"`
	ReplyBackoff    Duration `toml:"reply_backoff"`
	DefaultCurrency string   `toml:"default_currency"`
}

// DatabaseConfig holds ledger database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ResponsesConfig holds reply template settings
type ResponsesConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// HealthConfig holds the gRPC health endpoint settings
type HealthConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from the LENDBOT_CONFIG environment variable
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/lendbot/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("no config file found, set %s or create configs/config.toml", EnvConfigPath)
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "lendbot"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	// Bot
	if c.Bot.Username == "" {
		c.Bot.Username = "lendbot"
	}
	if c.Bot.PollInterval.Duration == 0 {
		c.Bot.PollInterval.Duration = 30 * time.Second
	}
	if c.Bot.Inbox == "" {
		c.Bot.Inbox = filepath.Join(c.General.DataDir, "inbox.jsonl")
	}
	if c.Bot.Outbox == "" {
		c.Bot.Outbox = filepath.Join(c.General.DataDir, "outbox.jsonl")
	}
	if c.Bot.ReplyAttempts == 0 {
		c.Bot.ReplyAttempts = 3
	}
	if c.Bot.ReplyBackoff.Duration == 0 {
		c.Bot.ReplyBackoff.Duration = 2 * time.Second
	}
	if c.Bot.DefaultCurrency == "" {
		c.Bot.DefaultCurrency = "USD"
	}

	// Database
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.General.DataDir, "ledger.db")
	}

	// Responses
	if c.Responses.Dir == "" {
		c.Responses.Dir = "./configs/responses"
	}

	// Health
	if c.Health.Host == "" {
		c.Health.Host = "0.0.0.0"
	}
	if c.Health.Port == 0 {
		c.Health.Port = 9310
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Bot.Inbox = os.ExpandEnv(c.Bot.Inbox)
	c.Bot.Outbox = os.ExpandEnv(c.Bot.Outbox)
	c.Database.Path = os.ExpandEnv(c.Database.Path)
	c.Responses.Dir = os.ExpandEnv(c.Responses.Dir)
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	var problems []string

	if c.Bot.ReplyAttempts < 1 {
		problems = append(problems, "bot.reply_attempts must be at least 1")
	}
	if c.Bot.PollInterval.Duration < time.Second {
		problems = append(problems, "bot.poll_interval must be at least 1s")
	}
	if len(c.Bot.DefaultCurrency) != 3 || strings.ToUpper(c.Bot.DefaultCurrency) != c.Bot.DefaultCurrency {
		problems = append(problems, "bot.default_currency must be a three letter upper case code")
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		problems = append(problems, "health.port out of range")
	}

	if len(problems) > 0 {
		return mdwerror.New("invalid configuration: "+strings.Join(problems, "; ")).
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Validate")
	}
	return nil
}

// HealthAddress returns the listen address of the health endpoint
func (c *Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Health.Host, c.Health.Port)
}
