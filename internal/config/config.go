// Package config loads server settings from defaults, an optional YAML file
// and ROOMIES_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	AllocatorURL     string        `yaml:"allocator_url"`
	AllocatorTimeout time.Duration `yaml:"allocator_timeout"`

	// HomeRadiusMeters is how close to a room's anchor a member must be to
	// count as home.
	HomeRadiusMeters float64       `yaml:"home_radius_meters"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`

	// AllowedOrigins are host patterns accepted for browser websocket
	// upgrades in addition to same-origin requests.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		DBPath:           "roomies.db",
		LogLevel:         "info",
		LogFormat:        "text",
		AllocatorTimeout: 30 * time.Second,
		HomeRadiusMeters: 100,
		SessionTTL:       30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Load builds the configuration. A missing file at path is an error; an
// empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var errs []error
	envString(&c.Port, "ROOMIES_PORT")
	envString(&c.DBPath, "ROOMIES_DB_PATH")
	envString(&c.LogLevel, "ROOMIES_LOG_LEVEL")
	envString(&c.LogFormat, "ROOMIES_LOG_FORMAT")
	envString(&c.AllocatorURL, "ROOMIES_ALLOCATOR_URL")
	if v := os.Getenv("ROOMIES_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	errs = append(errs,
		envDuration(&c.AllocatorTimeout, "ROOMIES_ALLOCATOR_TIMEOUT"),
		envFloat(&c.HomeRadiusMeters, "ROOMIES_HOME_RADIUS_METERS"),
		envDuration(&c.SessionTTL, "ROOMIES_SESSION_TTL"),
		envDuration(&c.CleanupInterval, "ROOMIES_CLEANUP_INTERVAL"),
	)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if c.AllocatorTimeout <= 0 {
		errs = append(errs, errors.New("allocator_timeout must be positive"))
	}
	if c.HomeRadiusMeters <= 0 {
		errs = append(errs, errors.New("home_radius_meters must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup_interval must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
