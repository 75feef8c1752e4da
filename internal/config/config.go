// Package config loads the labels configuration from defaults, an optional
// YAML file and LABELS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Geocoder GeocoderConfig `koanf:"geocoder"`
	Export   ExportConfig   `koanf:"export"`
	Log      LogConfig      `koanf:"log"`
	Features FeatureConfig  `koanf:"features"`
}

type ServerConfig struct {
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	AuthToken string `koanf:"auth_token"`
}

// Addr is host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver         string `koanf:"driver"` // postgres, sqlite or memory
	URL            string `koanf:"url"`
	Path           string `koanf:"path"`
	MaxConnections int    `koanf:"max_connections"`
}

type GeocoderConfig struct {
	Provider          string        `koanf:"provider"` // local, nominatim or libpostal
	BaseURL           string        `koanf:"base_url"`
	UserAgent         string        `koanf:"user_agent"`
	Email             string        `koanf:"email"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Timeout           time.Duration `koanf:"timeout"`
	Concurrency       int           `koanf:"concurrency"`
}

type ExportConfig struct {
	Template   string `koanf:"template"`
	NameFormat string `koanf:"name_format"`
	ShowTo     bool   `koanf:"show_to"`
	FontFile   string `koanf:"font_file"`
	OutputDir  string `koanf:"output_dir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type FeatureConfig struct {
	ExportEnabled     bool `koanf:"export_enabled"`
	CorrectionEnabled bool `koanf:"correction_enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "labels.db",
			MaxConnections: 10,
		},
		Geocoder: GeocoderConfig{
			Provider:          "local",
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "referral-labels/1.0",
			RequestsPerSecond: 1,
			Timeout:           10 * time.Second,
			Concurrency:       4,
		},
		Export: ExportConfig{
			Template:   "avery-5160",
			NameFormat: "office",
			OutputDir:  ".",
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Features: FeatureConfig{
			ExportEnabled:     true,
			CorrectionEnabled: true,
		},
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres", "postgresql", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch strings.ToLower(c.Geocoder.Provider) {
	case "local", "libpostal":
	case "nominatim":
		if c.Geocoder.BaseURL == "" {
			return errors.New("geocoder.base_url is required for nominatim")
		}
		if c.Geocoder.RequestsPerSecond <= 0 {
			return errors.New("geocoder.requests_per_second must be positive")
		}
	default:
		return fmt.Errorf("unknown geocoder provider %q", c.Geocoder.Provider)
	}
	if c.Geocoder.Concurrency < 1 {
		return errors.New("geocoder.concurrency must be at least 1")
	}

	switch strings.ToLower(c.Export.NameFormat) {
	case "office", "contact":
	default:
		return fmt.Errorf("unknown export.name_format %q", c.Export.NameFormat)
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
