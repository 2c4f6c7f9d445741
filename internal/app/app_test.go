package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/mail-watcher/internal/types"
)

func testConfig(t *testing.T) *types.Config {
	t.Helper()
	cfg := &types.Config{}
	cfg.Meta.ID = "test"
	cfg.Meta.Name = "test"
	cfg.Meta.Enabled = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // any free port
	cfg.Server.ExternalURL = "https://mail.example.org"
	cfg.Storage.EntriesDir = t.TempDir()
	cfg.Workers.PoolSize = 2
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

func TestNewWiresComponents(t *testing.T) {
	a, err := New(slog.New(slog.DiscardHandler), testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, a.Wizard())
	assert.NotNil(t, a.Entries())
	assert.NotNil(t, a.Webhooks())

	reg := a.Webhooks().Registration()
	assert.NoError(t, reg.ValidateRequirements(), "https external url satisfies the consent requirements")
}

func TestStartStop(t *testing.T) {
	a, err := New(slog.New(slog.DiscardHandler), testConfig(t))
	require.NoError(t, err)

	require.NoError(t, a.Start())
	a.Stop()
}
