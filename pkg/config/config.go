// Package config loads server configuration from an optional YAML file,
// layering command-line flag and environment variable overrides on top in
// the order flags > env > file > built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the front door, stores, and admin surface need.
type Config struct {
	Port        int      `yaml:"port"`
	SQLitePath  string   `yaml:"sqlite_path"`
	BoltPath    string   `yaml:"bolt_path"`
	MetricsPort int      `yaml:"metrics_port"`
	AdminPort   int      `yaml:"admin_port"`
	AdminPass   string   `yaml:"admin_pass"`
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTExpiry   int      `yaml:"jwt_expiry_seconds"`
	Moderators  []string `yaml:"moderators"`
	RollMax     int      `yaml:"roll_max_default"`
	IdleBufSize int      `yaml:"idle_buffer_bytes"`
}

// Default returns the built-in defaults, used when no config file is given
// and no override matches.
func Default() *Config {
	return &Config{
		Port:        4201,
		SQLitePath:  "data/users.db",
		BoltPath:    "data/match.bolt",
		MetricsPort: 9401,
		AdminPort:   8401,
		AdminPass:   "changeme",
		JWTExpiry:   86400,
		RollMax:     6,
		IdleBufSize: 2048,
	}
}

// Load reads a YAML config file, falling back to Default() on any error —
// a bad or missing config file is never fatal, only logged by the caller.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return cfg, nil
}

// envDefault returns the environment variable value if set, otherwise fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// ApplyEnv layers TTT_* environment variable overrides onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	c.SQLitePath = envDefault("TTT_SQLITE", c.SQLitePath)
	c.BoltPath = envDefault("TTT_BOLT", c.BoltPath)
	if v := os.Getenv("TTT_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MetricsPort = p
		}
	}
	if v := os.Getenv("TTT_ADMIN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.AdminPort = p
		}
	}
	c.AdminPass = envDefault("TTT_ADMIN_PASS", c.AdminPass)
	c.JWTSecret = envDefault("TTT_JWT_SECRET", c.JWTSecret)
	if v := os.Getenv("TTT_MODERATORS"); v != "" {
		c.Moderators = strings.Split(v, ",")
	}
}
