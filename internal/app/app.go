package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/altafino/mail-watcher/internal/capability"
	"github.com/altafino/mail-watcher/internal/mailauth"
	xoauth "github.com/altafino/mail-watcher/internal/oauth2"
	"github.com/altafino/mail-watcher/internal/scheduler"
	"github.com/altafino/mail-watcher/internal/store"
	"github.com/altafino/mail-watcher/internal/types"
	"github.com/altafino/mail-watcher/internal/webhook"
	"github.com/altafino/mail-watcher/internal/wizard"
	"github.com/altafino/mail-watcher/internal/worker"
)

// App represents the main application
type App struct {
	logger    *slog.Logger
	cfg       *types.Config
	entries   *store.Store
	watcher   *store.Watcher
	scheduler *scheduler.Scheduler
	webhooks  *webhook.Manager
	server    *http.Server
	pool      *worker.Pool
	wizard    *wizard.Wizard
	wg        sync.WaitGroup
}

// New creates a new application instance
func New(logger *slog.Logger, cfg *types.Config) (*App, error) {
	entries, err := store.New(cfg.Storage.EntriesDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open entry store: %w", err)
	}

	reg := webhook.NewRegistration(
		cfg.Server.ExternalURL,
		cfg.Cloud.CloudhookURL,
		cfg.Cloud.ActiveSubscription,
	)
	webhooks := webhook.NewManager(reg, logger)

	mail := mailauth.NewClient(logger)
	pool := worker.NewPool(cfg.Workers.PoolSize)

	app := &App{
		logger:    logger,
		cfg:       cfg,
		entries:   entries,
		scheduler: scheduler.NewScheduler(logger, entries, mail),
		webhooks:  webhooks,
		pool:      pool,
	}

	app.wizard = wizard.New(wizard.Deps{
		Logger:  logger,
		Pool:    pool,
		Mail:    mail,
		Tokens:  xoauth.NewConfidentialClient(logger),
		Consent: newConsentBroker(cfg, webhooks),
		Caps:    &capability.Checker{},
		Store:   entries,
	})

	return app, nil
}

// Wizard returns the account setup flow driver.
func (a *App) Wizard() *wizard.Wizard {
	return a.wizard
}

// Entries returns the entry store.
func (a *App) Entries() *store.Store {
	return a.entries
}

// Webhooks returns the callback manager.
func (a *App) Webhooks() *webhook.Manager {
	return a.webhooks
}

// Start starts all application services
func (a *App) Start() error {
	watcher, err := a.entries.StartWatcher()
	if err != nil {
		return fmt.Errorf("failed to start entry watcher: %w", err)
	}
	a.watcher = watcher

	a.scheduler.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/webhook/", a.webhooks.HandleCallback)

	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.Server.IdleTimeout) * time.Second,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("starting callback server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("callback server failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("callback server shutdown failed", "error", err)
		}
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Error("entry watcher stop failed", "error", err)
		}
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.pool.Wait()
	a.wg.Wait()
}

// consentBroker adapts the webhook manager and the Gmail application
// credentials to the wizard's interactive consent flow.
type consentBroker struct {
	manager *webhook.Manager
	cfg     webhook.ExchangeConfig
}

func newConsentBroker(cfg *types.Config, manager *webhook.Manager) *consentBroker {
	return &consentBroker{
		manager: manager,
		cfg: webhook.ExchangeConfig{
			Provider:     "gmail",
			ClientID:     cfg.OAuth.GmailClientID,
			ClientSecret: cfg.OAuth.GmailClientSecret,
			Scope:        xoauth.GmailScope,
			RedirectURI:  manager.Registration().URL(),
		},
	}
}

func (b *consentBroker) Ready() error {
	return b.manager.Registration().ValidateRequirements()
}

func (b *consentBroker) Exchange(ctx context.Context, code string) (*webhook.TokenPair, error) {
	return b.manager.Exchange(ctx, code, b.cfg)
}

func (b *consentBroker) Profile(ctx context.Context, accessToken string) (string, error) {
	return xoauth.GmailAddress(ctx, accessToken)
}
