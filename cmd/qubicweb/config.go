// Package main provides the QubicBall web frontend.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the qubicweb configuration.
type Config struct {
	Listen  string        `yaml:"listen" env:"QUBICWEB_LISTEN"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig points the frontend at the tracker API.
type APIConfig struct {
	BaseURL           string  `yaml:"base_url" env:"QUBICBALL_API_URL"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"QUBICBALL_API_RPS"`
}

// SessionConfig contains browser session settings.
type SessionConfig struct {
	CSRFKey       string        `yaml:"csrf_key" env:"QUBICWEB_CSRF_KEY"`
	TTL           time.Duration `yaml:"ttl" env:"QUBICWEB_SESSION_TTL"`
	SecureCookies bool          `yaml:"secure_cookies" env:"QUBICWEB_SECURE_COOKIES"`
}

// CacheConfig selects the response cache backend. With no redis address
// each replica keeps its own in-memory cache.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr" env:"QUBICWEB_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"QUBICWEB_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"QUBICWEB_REDIS_DB"`
	Namespace     string `yaml:"namespace" env:"QUBICWEB_CACHE_NAMESPACE"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"QUBICWEB_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"QUBICWEB_LOG_PRETTY"`
}

// LoadConfig loads configuration from a YAML file, then overlays
// environment variables on top.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.API.RequestsPerSecond == 0 {
		c.API.RequestsPerSecond = 20
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "qubicweb"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Session.CSRFKey == "" {
		return fmt.Errorf("session.csrf_key is required")
	}
	if len(c.Session.CSRFKey) < 32 {
		return fmt.Errorf("session.csrf_key must be at least 32 bytes")
	}
	return nil
}
