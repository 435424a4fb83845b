package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server and CLI settings
type Config struct {
	// Server
	Addr       string        `yaml:"addr" json:"addr"`               // Listen address for the API server
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl"` // Lifetime of a login session

	// Database
	DBDriver string `yaml:"db_driver" json:"db_driver"` // "sqlite" or "postgres"
	DBDSN    string `yaml:"db_dsn" json:"db_dsn"`       // Driver specific data source name

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns ~/.secureplan, or an empty string when there is no home directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".secureplan")
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir := Dir()
	logPath, dbPath := "", "secureplan.db"
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "secureplan.log")
		dbPath = filepath.Join(dir, "secureplan.db")
	}

	return &Config{
		Addr:       ":8080",
		SessionTTL: 30 * 24 * time.Hour,
		DBDriver:   "sqlite",
		DBDSN:      dbPath,
		LogLevel:   "INFO",
		LogFile:    logPath,
		LogConsole: false,
	}
}

// applyEnv lets SECUREPLAN_* variables override file values
func (c *Config) applyEnv() error {
	c.Addr = getEnv("SECUREPLAN_ADDR", c.Addr)
	c.DBDriver = getEnv("SECUREPLAN_DB_DRIVER", c.DBDriver)
	c.DBDSN = getEnv("SECUREPLAN_DB_DSN", c.DBDSN)
	c.LogLevel = getEnv("SECUREPLAN_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("SECUREPLAN_LOG_FILE", c.LogFile)
	if v := os.Getenv("SECUREPLAN_LOG_CONSOLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SECUREPLAN_LOG_CONSOLE: %w", err)
		}
		c.LogConsole = b
	}
	if v := os.Getenv("SECUREPLAN_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SECUREPLAN_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks values the server cannot start without
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	return nil
}

// Load loads config from ~/.secureplan/config.yaml
func Load() (*Config, error) {
	dir := Dir()
	if dir == "" {
		cfg := DefaultConfig()
		return cfg, cfg.applyEnv()
	}
	return LoadFile(filepath.Join(dir, "config.yaml"))
}

// LoadFile loads config from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveFile writes the config as YAML, creating parent directories
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
