// Package config loads the propform server and CLI settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-propform/internal/telemetry"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor
// TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Duration decodes "5s" style strings from YAML and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full settings tree.
type Config struct {
	Server   ServerConfig            `yaml:"server" toml:"server"`
	Database DatabaseConfig          `yaml:"database" toml:"database"`
	Logging  telemetry.LoggingConfig `yaml:"logging" toml:"logging"`
	Schema   SchemaConfig            `yaml:"schema" toml:"schema"`
	Probe    ProbeConfig             `yaml:"probe" toml:"probe"`
	Theme    ThemeConfig             `yaml:"theme" toml:"theme"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr" toml:"addr" validate:"required"`
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gte=0"`
	// OwnerHeader carries the save API owner. Requests without it use
	// DefaultOwner.
	OwnerHeader  string `yaml:"owner_header" toml:"owner_header" validate:"required"`
	DefaultOwner string `yaml:"default_owner" toml:"default_owner" validate:"required"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" toml:"dsn" validate:"required"`
}

// SchemaConfig points at the schema document, a file path or an http(s) URL.
type SchemaConfig struct {
	Source  string   `yaml:"source" toml:"source"`
	Timeout Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"`
}

type ProbeConfig struct {
	Timeout     Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"`
	Concurrency int      `yaml:"concurrency" toml:"concurrency" validate:"gte=0"`
	// AllowPrivate lets the server check loopback and private addresses.
	AllowPrivate bool `yaml:"allow_private" toml:"allow_private"`
}

type ThemeConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Variant string `yaml:"variant" toml:"variant"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			OwnerHeader:     "X-Propform-Owner",
			DefaultOwner:    "default",
		},
		Database: DatabaseConfig{DSN: "propform.db"},
		Logging:  telemetry.LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
		Schema:   SchemaConfig{Timeout: Duration(10 * time.Second)},
		Probe:    ProbeConfig{Timeout: Duration(5 * time.Second), Concurrency: 4},
	}
}

// Load reads path over the defaults, applies PROPFORM_* environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(filepath.Ext(path), data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode unmarshals data by file extension into cfg.
func Decode(ext string, data []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Validate checks cfg with its struct tags.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Addr = envOr("PROPFORM_ADDR", cfg.Server.Addr)
	cfg.Server.DefaultOwner = envOr("PROPFORM_DEFAULT_OWNER", cfg.Server.DefaultOwner)
	cfg.Database.DSN = envOr("PROPFORM_DB", cfg.Database.DSN)
	cfg.Logging.Level = envOr("PROPFORM_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOr("PROPFORM_LOG_FORMAT", cfg.Logging.Format)
	cfg.Schema.Source = envOr("PROPFORM_SCHEMA", cfg.Schema.Source)
	cfg.Theme.Name = envOr("PROPFORM_THEME", cfg.Theme.Name)
	cfg.Theme.Variant = envOr("PROPFORM_THEME_VARIANT", cfg.Theme.Variant)

	if v := os.Getenv("PROPFORM_PROBE_TIMEOUT"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: PROPFORM_PROBE_TIMEOUT: %w", err)
		}
		cfg.Probe.Timeout = d
	}
	if v := os.Getenv("PROPFORM_PROBE_ALLOW_PRIVATE"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PROPFORM_PROBE_ALLOW_PRIVATE: %w", err)
		}
		cfg.Probe.AllowPrivate = allow
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
