// Package config loads process configuration from an optional YAML file and
// the environment. Environment variables always override YAML values;
// secrets come from the environment only.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the detector process.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Detection DetectionConfig `yaml:"detection"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// DatabaseConfig holds the connection to the database under inspection.
type DatabaseConfig struct {
	URL             string        `yaml:"-" env:"DATABASE_URL"` // Secret - not in YAML
	Schema          string        `yaml:"schema" env:"DATABASE_SCHEMA" env-default:"public"`
	CatalogProvider string        `yaml:"catalog_provider" env:"DATABASE_CATALOG_PROVIDER" env-default:"information_schema"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS" env-default:"5"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS" env-default:"2"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"30m"`
}

// SMTPConfig holds the outgoing mail transport.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"-" env:"SMTP_PASSWORD"` // Secret - not in YAML
	// PasswordFile names a file holding the password, e.g. a mounted secret.
	PasswordFile string        `yaml:"password_file" env:"SMTP_PASSWORD_FILE"`
	From         string        `yaml:"from" env:"SMTP_FROM"`
	TLS          string        `yaml:"tls" env:"SMTP_TLS" env-default:"mandatory"`
	Timeout      time.Duration `yaml:"timeout" env:"SMTP_TIMEOUT" env-default:"15s"`
}

// DetectionConfig tunes schema analysis and request bounds.
type DetectionConfig struct {
	DefaultTable    string `yaml:"default_table" env:"DETECTION_DEFAULT_TABLE" env-default:"candidates"`
	SelectionPolicy string `yaml:"selection_policy" env:"DETECTION_SELECTION_POLICY" env-default:"first_match"`
	DefaultLimit    int    `yaml:"default_limit" env:"DETECTION_DEFAULT_LIMIT" env-default:"50"`
	MaxLimit        int    `yaml:"max_limit" env:"DETECTION_MAX_LIMIT" env-default:"500"`
}

// SandboxConfig configures the disposable database used with --fixtures.
type SandboxConfig struct {
	Image string `yaml:"image" env:"SANDBOX_IMAGE" env-default:"postgres:16-alpine"`
}

var (
	catalogProviders  = []string{"information_schema", "pg_catalog"}
	selectionPolicies = []string{"first_match", "best_score"}
	tlsPolicies       = []string{"mandatory", "opportunistic", "none"}
	logLevels         = []string{"debug", "info", "warn", "error"}
)

// Load reads path when it is non-empty, otherwise the environment only, then
// resolves file-based secrets and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.SMTP.resolvePassword(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if !oneOf(c.Database.CatalogProvider, catalogProviders) {
		return fmt.Errorf("database.catalog_provider must be one of %s, got %q",
			strings.Join(catalogProviders, ", "), c.Database.CatalogProvider)
	}
	if !oneOf(c.Detection.SelectionPolicy, selectionPolicies) {
		return fmt.Errorf("detection.selection_policy must be one of %s, got %q",
			strings.Join(selectionPolicies, ", "), c.Detection.SelectionPolicy)
	}
	if !oneOf(c.SMTP.TLS, tlsPolicies) {
		return fmt.Errorf("smtp.tls must be one of %s, got %q", strings.Join(tlsPolicies, ", "), c.SMTP.TLS)
	}
	if !oneOf(c.LogLevel, logLevels) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, ", "), c.LogLevel)
	}
	if c.Detection.MaxLimit <= 0 {
		return fmt.Errorf("detection.max_limit must be positive, got %d", c.Detection.MaxLimit)
	}
	if c.Detection.DefaultLimit <= 0 || c.Detection.DefaultLimit > c.Detection.MaxLimit {
		return fmt.Errorf("detection.default_limit must be between 1 and %d, got %d",
			c.Detection.MaxLimit, c.Detection.DefaultLimit)
	}
	if strings.TrimSpace(c.Detection.DefaultTable) == "" {
		return fmt.Errorf("detection.default_table must not be empty")
	}
	if c.SMTP.Host != "" {
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp.host is set")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", c.SMTP.Port)
		}
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolvePassword reads PasswordFile when no password was given directly.
func (s *SMTPConfig) resolvePassword() error {
	if s.Password != "" || s.PasswordFile == "" {
		return nil
	}
	content, err := os.ReadFile(s.PasswordFile)
	if err != nil {
		return fmt.Errorf("failed to read smtp password file: %w", err)
	}
	s.Password = strings.TrimSpace(string(content))
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
