// Package config loads nextbus settings from an optional YAML file, a .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	APIKey         string        `yaml:"api_key" validate:"required"`
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gt=0"`
	SkipNetCheck   bool          `yaml:"skip_net_check"` // assume the host is always online

	AlertsURL      string        `yaml:"alerts_url" validate:"omitempty,url"`
	AlertsInterval time.Duration `yaml:"alerts_interval" validate:"gte=0"`

	DBPath    string `yaml:"db_path" validate:"required"`
	Port      int    `yaml:"port" validate:"gt=0,lte=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		BaseURL:        "http://api.translink.ca/RTTIAPI/V1",
		ConnectTimeout: 3 * time.Second,
		ReadTimeout:    3 * time.Second,
		AlertsURL:      "https://gtfsapi.translink.ca/v3/gtfsalerts",
		AlertsInterval: 60 * time.Second,
		DBPath:         "./nextbus.db",
		Port:           8080,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads the configuration with Read and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads .env (if present), then the YAML file named by NEXTBUS_CONFIG
// (if set), then NEXTBUS_* environment variables. The result is not
// validated, so callers can apply flag overrides first.
func Read() (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("NEXTBUS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIKey = envStr("NEXTBUS_API_KEY", c.APIKey)
	c.BaseURL = envStr("NEXTBUS_BASE_URL", c.BaseURL)
	c.ConnectTimeout = envDuration("NEXTBUS_CONNECT_TIMEOUT", c.ConnectTimeout)
	c.ReadTimeout = envDuration("NEXTBUS_READ_TIMEOUT", c.ReadTimeout)
	c.SkipNetCheck = envBool("NEXTBUS_SKIP_NET_CHECK", c.SkipNetCheck)
	c.AlertsURL = envStr("NEXTBUS_ALERTS_URL", c.AlertsURL)
	c.AlertsInterval = envDuration("NEXTBUS_ALERTS_INTERVAL", c.AlertsInterval)
	c.DBPath = envStr("NEXTBUS_DB_PATH", c.DBPath)
	c.Port = envInt("NEXTBUS_PORT", c.Port)
	c.LogLevel = strings.ToLower(envStr("NEXTBUS_LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(envStr("NEXTBUS_LOG_FORMAT", c.LogFormat))
}

// Validate checks the struct tags. Call it again after overriding fields
// from flags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("3s", "500ms") or plain milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
