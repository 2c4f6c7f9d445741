package scheduler

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/mail-watcher/internal/mailauth"
	"github.com/altafino/mail-watcher/internal/store"
)

type fakeCounter struct {
	mu     sync.Mutex
	params []mailauth.ConnParams
}

func (f *fakeCounter) MessageCount(p mailauth.ConnParams, folder string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, p)
	return 3, nil
}

func TestUpdateJobSchedulesEntry(t *testing.T) {
	entries, err := store.New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	s := NewScheduler(slog.New(slog.DiscardHandler), entries, &fakeCounter{})

	entry, err := entries.Create("acct", map[string]any{
		"host": "imap.example.org", "port": 993,
		"username": "me@example.org", "password": "p",
		"method": "standard", "scan_interval": 10,
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateJob(entry))
	assert.Equal(t, 1, s.JobCount())

	// Rescheduling the same entry replaces the job instead of stacking.
	require.NoError(t, s.UpdateJob(entry))
	assert.Equal(t, 1, s.JobCount())
}

func TestConnParamsSelectsSecret(t *testing.T) {
	p := connParams(map[string]any{
		"host": "h", "port": 993, "username": "u",
		"method": "standard", "password": "pw", "token": "tok",
	})
	assert.Equal(t, "pw", p.Password)
	assert.Empty(t, p.Token)
	assert.Equal(t, 30*time.Second, p.Timeout)

	p = connParams(map[string]any{
		"host": "h", "port": 993, "username": "u",
		"method": "o365", "token": "tok", "imap_timeout": 15,
	})
	assert.Equal(t, "tok", p.Token)
	assert.Empty(t, p.Password)
	assert.Equal(t, 15*time.Second, p.Timeout)
}

func TestReloadReschedulesEntry(t *testing.T) {
	entries, err := store.New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	s := NewScheduler(slog.New(slog.DiscardHandler), entries, &fakeCounter{})

	entry, err := entries.Create("acct", map[string]any{
		"host": "imap.example.org", "port": 993,
		"username": "me@example.org", "password": "p",
		"method": "standard", "scan_interval": 10,
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Equal(t, 1, s.JobCount())

	require.NoError(t, entries.Update(entry.ID, map[string]any{"scan_interval": 20}))

	assert.Eventually(t, func() bool {
		return s.JobCount() == 1
	}, time.Second, 10*time.Millisecond)
}
