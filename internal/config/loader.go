package config

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ALERTS_API_TOKEN.
const EnvPrefix = "ALERTS_"

// Load reads a YAML config file, expands environment variables and applies
// ALERTS_* overrides.
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := applyEnv(ctx, &cfg, envconfig.OsLookuper()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overwrites fields whose ALERTS_* variable is set.
func applyEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           cfg,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, lookuper),
		DefaultOverwrite: true,
	})
	if err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(ctx context.Context, path string) (*Config, error) {
	cfg, err := LoadWithDefaults(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
