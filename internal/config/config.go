package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"`
	Logging    LoggingConfig `yaml:"logging"`
	Poll       PollConfig    `yaml:"poll"`
	Google     GoogleConfig  `yaml:"google"`
	NATS       NATSConfig    `yaml:"nats"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PollConfig struct {
	Interval     time.Duration `yaml:"interval"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Lookback     time.Duration `yaml:"lookback"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

// NATSConfig enables the due-event notifier when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load reads the YAML config file, applies SCALD_* environment overrides,
// and fills defaults. An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&c.ListenAddr, "SCALD_LISTEN_ADDR")
	setString(&c.DBPath, "SCALD_DB_PATH")
	setString(&c.Logging.Level, "SCALD_LOG_LEVEL")
	setString(&c.Logging.Format, "SCALD_LOG_FORMAT")
	setDuration(&c.Poll.Interval, "SCALD_POLL_INTERVAL")
	setDuration(&c.Poll.InitialDelay, "SCALD_POLL_INITIAL_DELAY")
	setDuration(&c.Poll.Lookback, "SCALD_POLL_LOOKBACK")
	setString(&c.Google.CredentialsFile, "SCALD_GOOGLE_CREDENTIALS")
	setString(&c.Google.TokenFile, "SCALD_GOOGLE_TOKEN")
	setString(&c.NATS.URL, "SCALD_NATS_URL")
	setString(&c.NATS.Subject, "SCALD_NATS_SUBJECT")
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "scald.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Poll.Interval < 0 || c.Poll.InitialDelay < 0 || c.Poll.Lookback < 0 {
		return fmt.Errorf("poll durations must not be negative")
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 30 * time.Second
	}
	if c.Poll.InitialDelay == 0 {
		c.Poll.InitialDelay = 3 * time.Second
	}
	if c.Poll.Lookback == 0 {
		c.Poll.Lookback = 7 * 24 * time.Hour
	}

	if c.Google.CredentialsFile == "" {
		return fmt.Errorf("google credentials file is required")
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "token.json"
	}

	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = "scald.events.due"
	}

	return nil
}
