// Package config loads the settings of nem applications from the
// environment and optional .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort        = 3000
	DefaultHost        = "0.0.0.0"
	DefaultSessionSize = 4096
)

type Config struct {
	// Env is the application environment, "development" by default
	Env string

	Port int
	Host string

	// Views lists the template directories of the root module
	Views []string

	SessionSize int

	LogLevel  string
	LogFormat string
}

// Production reports whether the application runs in production
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the given .env files, ".env" when none are given, and then
// the environment. Missing files are ignored; variables already set win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Env:         firstNonEmpty(env("NEM_ENV"), env("APP_ENV"), "development"),
		Host:        firstNonEmpty(env("HOST"), DefaultHost),
		LogLevel:    strings.ToLower(firstNonEmpty(env("NEM_LOG_LEVEL"), "info")),
		LogFormat:   strings.ToLower(env("NEM_LOG_FORMAT")),
		Port:        DefaultPort,
		SessionSize: DefaultSessionSize,
	}

	var err error
	if raw := env("PORT"); raw != "" {
		if cfg.Port, err = strconv.Atoi(strings.TrimPrefix(raw, ":")); err != nil || cfg.Port < 0 || cfg.Port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", raw)
		}
	}
	if raw := env("NEM_SESSION_SIZE"); raw != "" {
		if cfg.SessionSize, err = strconv.Atoi(raw); err != nil || cfg.SessionSize <= 0 {
			return nil, fmt.Errorf("invalid NEM_SESSION_SIZE %q", raw)
		}
	}
	for _, dir := range filepath.SplitList(env("NEM_VIEWS")) {
		if dir = strings.TrimSpace(dir); dir != "" {
			cfg.Views = append(cfg.Views, dir)
		}
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.Production() {
			cfg.LogFormat = "json"
		}
	}
	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
