package logger

import (
	"log/slog"
	"os"

	"github.com/altafino/mail-watcher/internal/types"
	"github.com/golang-cz/devslog"
)

// Setup creates a new logger based on configuration
func Setup(cfg *types.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Logging.IncludeCaller,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = devslog.NewHandler(os.Stdout, &devslog.Options{
			HandlerOptions: opts,
		})
	}

	return slog.New(handler)
}
