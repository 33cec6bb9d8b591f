// Package config loads lattice.yaml with ${ENV:default} substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the root configuration document.
	Config struct {
		Server   ServerConfig   `yaml:"server"`
		Database DatabaseConfig `yaml:"database"`
		Auth     AuthConfig     `yaml:"auth"`
		Logger   LoggerConfig   `yaml:"logger"`
		Events   EventsConfig   `yaml:"events"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// ServerConfig controls the HTTP listener.
	ServerConfig struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	}

	// DatabaseConfig points at the SQLite file.
	DatabaseConfig struct {
		Path          string        `yaml:"path"`
		MigrationsDir string        `yaml:"migrations_dir"` // empty means embedded
		BusyTimeout   time.Duration `yaml:"busy_timeout"`
		MaxReadConns  int           `yaml:"max_read_conns"`
	}

	// AuthConfig controls token issuing and password rules.
	AuthConfig struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		TokenTTL       time.Duration `yaml:"token_ttl"`
		PasswordPolicy bool          `yaml:"password_policy"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`     // debug, info, warn, error
		Format     string `yaml:"format"`    // json, console
		Output     string `yaml:"output"`    // stdout, file
		FilePath   string `yaml:"file_path"` // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`  // MB
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"` // days
		Compress   bool   `yaml:"compress"`
		Color      bool   `yaml:"color"`
	}

	// EventsConfig controls the change-notification hub.
	EventsConfig struct {
		Buffer int         `yaml:"buffer"`
		Redis  RedisConfig `yaml:"redis"`
	}

	// RedisConfig enables cross-process fan-out over Pub/Sub.
	RedisConfig struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	}

	// MetricsConfig controls the Prometheus endpoint.
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Path      string    `yaml:"path"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// DevSecret is used when no secret is configured. Serve logs a warning when
// it is in use.
const DevSecret = "lattice-dev-secret-change-me-please-000"

var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads filename (if non-empty), resolves env placeholders and applies
// defaults. A missing file is not an error when filename is empty.
func Load(filename string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{}
	if strings.TrimSpace(filename) != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", filename, err)
		}
		if err := yaml.Unmarshal(resolveEnv(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":2707"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.Database.Path == "" {
		c.Database.Path = "lattice.db"
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DevSecret
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 8 * time.Hour
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
	if c.Logger.FilePath == "" {
		c.Logger.FilePath = "logs/lattice.log"
	}
	if c.Logger.MaxSize == 0 {
		c.Logger.MaxSize = 100
	}
	if c.Logger.MaxBackups == 0 {
		c.Logger.MaxBackups = 3
	}
	if c.Logger.MaxAge == 0 {
		c.Logger.MaxAge = 7
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 16
	}
	if c.Events.Redis.Addr == "" {
		c.Events.Redis.Addr = "localhost:6379"
	}
	if c.Events.Redis.Channel == "" {
		c.Events.Redis.Channel = "lattice:events"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "lattice"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters"))
	}
	switch c.Logger.Output {
	case "stdout", "file":
	default:
		errs = append(errs, fmt.Errorf("logger.output must be stdout or file, got %q", c.Logger.Output))
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format))
	}
	return errors.Join(errs...)
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := envPattern.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
