// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version this binary understands.
const CurrentVersion = 1

// Config is the lattice server configuration.
type Config struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Redis   RedisConfig  `yaml:"redis"`
	Storage Storage      `yaml:"storage"`
	MQTT    MQTTConfig   `yaml:"mqtt"`
	Logging Logging      `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the configured context expiry.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Storage selects the graph/execution persistence backend.
type Storage struct {
	// Backend is "memory" or "postgres". Postgres reads the standard
	// PG* environment variables for its connection.
	Backend string `yaml:"backend"`
}

type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ClientID  string `yaml:"client_id"`
	TopicBase string `yaml:"topic_base"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Server:  ServerConfig{Addr: ":8080"},
		Redis:   RedisConfig{Addr: "localhost:6379", TTLSeconds: 86400},
		Storage: Storage{Backend: "memory"},
		MQTT:    MQTTConfig{ClientID: "lattice", TopicBase: "lattice/executions"},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML config file, applying defaults for omitted
// fields. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return cfg, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}
	return cfg, nil
}
