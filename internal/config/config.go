// Package config provides configuration management for the weather cache
// proxy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Redis   RedisConfig   `toml:"redis"`
	Cache   CacheConfig   `toml:"cache"`
	Fetch   FetchConfig   `toml:"fetch"`
	Preload PreloadConfig `toml:"preload"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	Port        int    `toml:"port"`
	BindAddress string `toml:"bind_address"`
}

// RedisConfig contains durable store settings.
type RedisConfig struct {
	Addr string `toml:"addr"`
	DB   int    `toml:"db"`
}

// CacheConfig contains namespace versioning and expiry policy.
type CacheConfig struct {
	// Version is stamped into every namespace name; bumping it evicts all
	// previously cached payloads on the next activation.
	Version string `toml:"version"`

	// APITTLHours expires search records written from live API responses.
	APITTLHours int `toml:"api_ttl_hours"`

	// PrefetchTTLHours expires preloaded search records.
	PrefetchTTLHours int `toml:"prefetch_ttl_hours"`
}

// FetchConfig bounds outbound requests.
type FetchConfig struct {
	TimeoutMs     int      `toml:"timeout_ms"`
	MaxAttempts   int      `toml:"max_attempts"`
	BaseDelayMs   int      `toml:"base_delay_ms"`
	APIHosts      []string `toml:"api_hosts"`
	GeocodeURL    string   `toml:"geocode_url"`
	WeatherAPIURL string   `toml:"weather_api_url"`
}

// PreloadConfig lists the bounded popular-city prefetch set.
type PreloadConfig struct {
	Cities      []string `toml:"cities"`
	Concurrency int      `toml:"concurrency"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			BindAddress: "0.0.0.0",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			Version:          "v1",
			APITTLHours:      12,
			PrefetchTTLHours: 24,
		},
		Fetch: FetchConfig{
			TimeoutMs:   8000,
			MaxAttempts: 3,
			BaseDelayMs: 1000,
			APIHosts: []string{
				"api.open-meteo.com",
				"geocoding-api.open-meteo.com",
			},
			GeocodeURL:    "https://geocoding-api.open-meteo.com/v1/search",
			WeatherAPIURL: "https://api.open-meteo.com/v1/forecast",
		},
		Preload: PreloadConfig{
			Cities: []string{
				"New York", "London", "Tokyo", "Paris", "Sydney",
				"Berlin", "Toronto", "Singapore",
			},
			Concurrency: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional TOML file, then applies
// environment overrides. A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables on the loaded configuration.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CACHE_VERSION"); v != "" {
		cfg.Cache.Version = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the subsystem cannot run with.
func (c Config) Validate() error {
	if c.Cache.Version == "" {
		return fmt.Errorf("cache version cannot be empty")
	}
	if c.Cache.APITTLHours <= 0 {
		return fmt.Errorf("api_ttl_hours must be positive (got %d)", c.Cache.APITTLHours)
	}
	if c.Fetch.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be positive (got %d)", c.Fetch.TimeoutMs)
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive (got %d)", c.Fetch.MaxAttempts)
	}
	return nil
}

// FetchTimeout returns the fetch deadline as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMs) * time.Millisecond
}

// FetchBaseDelay returns the retry backoff unit as a duration.
func (c Config) FetchBaseDelay() time.Duration {
	return time.Duration(c.Fetch.BaseDelayMs) * time.Millisecond
}

// APITTL returns the API record TTL as a duration.
func (c Config) APITTL() time.Duration {
	return time.Duration(c.Cache.APITTLHours) * time.Hour
}

// PrefetchTTL returns the prefetch record TTL as a duration.
func (c Config) PrefetchTTL() time.Duration {
	return time.Duration(c.Cache.PrefetchTTLHours) * time.Hour
}
