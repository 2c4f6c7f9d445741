package config

import (
	"fmt"
	"os"

	"github.com/altafino/mail-watcher/internal/types"
	yaml "gopkg.in/yaml.v3"
)

// Load reads the service configuration from the given path. Environment
// variables referenced in the file are expanded before parsing.
func Load(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	expandedData := os.ExpandEnv(string(data))

	cfg := &types.Config{}
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Storage.EntriesDir == "" {
		cfg.Storage.EntriesDir = "./entries"
	}
	if cfg.Workers.PoolSize == 0 {
		cfg.Workers.PoolSize = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
