package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvWSURL overrides the endpoint URL when set.
const EnvWSURL = "LEXFLOW_WS_URL"

// Load reads a YAML config file and expands environment variables.
// An empty path returns an empty config.
func Load(path string) (*NotifierConfig, error) {
	var cfg NotifierConfig
	if path == "" {
		cfg.applyEnv()
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*NotifierConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*NotifierConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *NotifierConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvWSURL)); v != "" {
		c.Endpoint.URL = v
	}
}
