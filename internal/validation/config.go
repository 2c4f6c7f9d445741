package validation

import (
	"fmt"
	"strings"

	"github.com/altafino/mail-watcher/internal/types"
)

// ValidateConfig performs validation on the service configuration
func ValidateConfig(cfg *types.Config) error {
	if err := validateMeta(cfg); err != nil {
		return fmt.Errorf("meta validation failed: %w", err)
	}

	if err := validateServer(cfg); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := validateStorage(cfg); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	return nil
}

func validateMeta(cfg *types.Config) error {
	if cfg.Meta.ID == "" {
		return fmt.Errorf("meta.id is required")
	}

	if !isValidID(cfg.Meta.ID) {
		return fmt.Errorf("meta.id contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	return nil
}

func validateServer(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if cfg.Server.ExternalURL != "" && !strings.Contains(cfg.Server.ExternalURL, "://") {
		return fmt.Errorf("server.external_url must be an absolute URL")
	}

	return nil
}

func validateStorage(cfg *types.Config) error {
	if cfg.Storage.EntriesDir == "" {
		return fmt.Errorf("storage.entries_dir is required")
	}

	return nil
}

func validateLogging(cfg *types.Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}

	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: text, json")
	}

	validOutputs := map[string]bool{
		"stdout": true,
		"file":   true,
	}

	if !validOutputs[cfg.Logging.Output] {
		return fmt.Errorf("logging.output must be one of: stdout, file")
	}

	if cfg.Logging.Output == "file" && cfg.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when output is 'file'")
	}

	return nil
}

func isValidID(id string) bool {
	for _, r := range id {
		if !isValidIDChar(r) {
			return false
		}
	}
	return true
}

func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' ||
		r == '_'
}
