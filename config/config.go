package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amirhf/imageSearch/services/search-web/errs"
)

type Config struct {
	// Server
	Port      string `yaml:"port"`
	ImagesDir string `yaml:"images_dir"`

	// Search backend
	APIBase        string        `yaml:"api_base"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Sessions
	SessionTTL     time.Duration `yaml:"session_ttl"`
	PickerPageSize int           `yaml:"picker_page_size"`

	// Search history
	History HistoryConfig `yaml:"history"`
}

type HistoryConfig struct {
	Driver      string `yaml:"driver"`
	Limit       int    `yaml:"limit"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
	SQLiteDSN   string `yaml:"sqlite_dsn"`
	DatabaseURL string `yaml:"database_url"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:           "8080",
		ImagesDir:      "./public/images",
		APIBase:        "http://localhost:5000",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		SessionTTL:     24 * time.Hour,
		PickerPageSize: 100,
		History: HistoryConfig{
			Driver:      "memory",
			Limit:       50,
			RedisPrefix: "search-web:history",
			SQLiteDSN:   "search_history.db",
		},
	}
}

// Load reads .env (optional), then CONFIG_FILE (optional YAML), then the
// environment. Later sources win.
func Load() (*Config, error) {
	// Load .env from the working directory (optional, for local dev)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindConfig, "config.Load", "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errs.Wrap(errs.KindConfig, "config.Load", "parse config file", err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.ImagesDir = getEnv("IMAGES_DIR", c.ImagesDir)
	c.APIBase = getEnv("API_BASE", getEnv("API_URL", c.APIBase))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.History.Driver = getEnv("HISTORY_DRIVER", c.History.Driver)
	c.History.RedisAddr = getEnv("REDIS_ADDR", c.History.RedisAddr)
	c.History.RedisPrefix = getEnv("REDIS_PREFIX", c.History.RedisPrefix)
	c.History.SQLiteDSN = getEnv("SQLITE_DSN", c.History.SQLiteDSN)
	c.History.DatabaseURL = getEnv("DATABASE_URL", c.History.DatabaseURL)

	var err error
	if c.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.PickerPageSize, err = getInt("PICKER_PAGE_SIZE", c.PickerPageSize); err != nil {
		return err
	}
	if c.History.Limit, err = getInt("HISTORY_LIMIT", c.History.Limit); err != nil {
		return err
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return errs.New(errs.KindConfig, "config.Validate", "API_BASE must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errs.New(errs.KindConfig, "config.Validate", "REQUEST_TIMEOUT must be positive")
	}
	switch c.History.Driver {
	case "memory", "redis", "sqlite", "postgres":
	default:
		return errs.New(errs.KindConfig, "config.Validate",
			fmt.Sprintf("unsupported HISTORY_DRIVER %q", c.History.Driver))
	}
	if c.History.Driver == "redis" && c.History.RedisAddr == "" {
		return errs.New(errs.KindConfig, "config.Validate", "REDIS_ADDR is required for the redis history driver")
	}
	if c.History.Driver == "postgres" && c.History.DatabaseURL == "" {
		return errs.New(errs.KindConfig, "config.Validate", "DATABASE_URL is required for the postgres history driver")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errs.Wrap(errs.KindConfig, "config.Load", key+" must be an integer", err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errs.Wrap(errs.KindConfig, "config.Load", key+" must be a duration", err)
	}
	return d, nil
}
