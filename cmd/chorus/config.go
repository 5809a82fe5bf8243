package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// vendorConfig carries the per-vendor settings that don't belong in the
// environment. Credentials always come from the environment.
type vendorConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type config struct {
	Vendors map[string]vendorConfig `yaml:"vendors"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
