package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	API      APIConfig      `yaml:"api"`
	Scan     ScanConfig     `yaml:"scan"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RabbitMQConfig configures the optional listing publisher. An empty URL
// disables publishing entirely.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	SiteURL    string        `yaml:"site_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Limit      int           `yaml:"limit"`
}

type ScanConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	ErrorBackoff    time.Duration `yaml:"error_backoff"`
	WarmupDelay     time.Duration `yaml:"warmup_delay"`
	MinInterval     time.Duration `yaml:"min_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MinSearchDelay  time.Duration `yaml:"min_search_delay"`
	MaxSearchDelay  time.Duration `yaml:"max_search_delay"`
	NightPauseStart int           `yaml:"night_pause_start"`
	NightPauseEnd   int           `yaml:"night_pause_end"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "lbcwatch"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "lbcwatch"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "listings"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "lbcwatch_listings"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.leboncoin.fr"
	}
	if c.API.SiteURL == "" {
		c.API.SiteURL = "https://www.leboncoin.fr/"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = 5
	}
	if c.API.Limit == 0 {
		c.API.Limit = 15
	}
	if c.Scan.PollInterval == 0 {
		c.Scan.PollInterval = 5 * time.Second
	}
	if c.Scan.ErrorBackoff == 0 {
		c.Scan.ErrorBackoff = 15 * time.Second
	}
	if c.Scan.WarmupDelay == 0 {
		c.Scan.WarmupDelay = 15 * time.Second
	}
	if c.Scan.MinInterval == 0 {
		c.Scan.MinInterval = 45 * time.Minute
	}
	if c.Scan.MaxInterval == 0 {
		c.Scan.MaxInterval = 75 * time.Minute
	}
	if c.Scan.MinSearchDelay == 0 {
		c.Scan.MinSearchDelay = 3 * time.Second
	}
	if c.Scan.MaxSearchDelay == 0 {
		c.Scan.MaxSearchDelay = 7 * time.Second
	}
	if c.Scan.NightPauseStart == 0 && c.Scan.NightPauseEnd == 0 {
		c.Scan.NightPauseEnd = 7
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.Scan.NightPauseStart < 0 || c.Scan.NightPauseStart > 23 {
		return fmt.Errorf("night_pause_start out of range [0,24): %d", c.Scan.NightPauseStart)
	}
	if c.Scan.NightPauseEnd < 0 || c.Scan.NightPauseEnd > 23 {
		return fmt.Errorf("night_pause_end out of range [0,24): %d", c.Scan.NightPauseEnd)
	}
	if c.Scan.MinInterval > c.Scan.MaxInterval {
		return fmt.Errorf("min_interval %s exceeds max_interval %s", c.Scan.MinInterval, c.Scan.MaxInterval)
	}
	if c.Scan.MinSearchDelay > c.Scan.MaxSearchDelay {
		return fmt.Errorf("min_search_delay %s exceeds max_search_delay %s", c.Scan.MinSearchDelay, c.Scan.MaxSearchDelay)
	}
	return nil
}
