package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/altafino/mail-watcher/internal/app"
	"github.com/altafino/mail-watcher/internal/config"
	"github.com/altafino/mail-watcher/internal/logger"
	"github.com/altafino/mail-watcher/internal/validation"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	serverPort int
	log        *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mail-watcher",
	Short: "Mail account watcher service",
	Long: `A service that watches configured mail accounts for deliveries. Accounts are
added through a guided setup flow supporting password, app-only OAuth2 and
interactive OAuth2 authentication.`,
	RunE: run,
}

func init() {
	// Setup default logger until we load config
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Command line flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (text, json)")
	rootCmd.PersistentFlags().IntVar(&serverPort, "port", 0, "override callback server port")

	// Bind flags to viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the callback server and mailbox poller",
		RunE:  run,
	})
	rootCmd.AddCommand(CreateSetupCommand())
	rootCmd.AddCommand(CreateOptionsCommand())
	rootCmd.AddCommand(CreateEntriesCommand())
}

func setupLogger() *slog.Logger {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return log
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return logger.Setup(cfg)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if err := validation.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = logger.Setup(cfg)
	slog.SetDefault(log)

	application, err := app.New(log, cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down application")
	return nil
}
