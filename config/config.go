package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration shared by the commands.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Schema statements run once at startup.
	Schema []string `yaml:"schema"`
	Listen string   `yaml:"listen"`
	// JWTSecret enables bearer-token auth on the statement host when set.
	JWTSecret string `yaml:"jwt_secret"`
	// Audit persists teardown failures to the teardown_failures table.
	Audit bool `yaml:"audit"`
}

var (
	ErrMissingDriver = errors.New("config: driver is required")
	ErrMissingDSN    = errors.New("config: dsn is required")
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Driver: "sqlite3",
		Listen: ":8080",
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STMTBATCH_DRIVER"); v != "" {
		c.Driver = v
	}
	if v := os.Getenv("STMTBATCH_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("STMTBATCH_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("STMTBATCH_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
}

func (c *Config) Validate() error {
	if c.Driver == "" {
		return ErrMissingDriver
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	switch c.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("config: unsupported driver %q", c.Driver)
	}
	return nil
}
