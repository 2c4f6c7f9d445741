package store

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.Create("imap.example.org", map[string]any{
		"host":     "imap.example.org",
		"port":     993,
		"username": "me@example.org",
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)

	got, err := s.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "imap.example.org", got.Data["host"])
	assert.Equal(t, 993, got.Data["port"])
}

func TestCreatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := New(dir, logger)
	require.NoError(t, err)
	entry, err := s.Create("acct", map[string]any{"host": "h", "folder": "INBOX"})
	require.NoError(t, err)

	reopened, err := New(dir, logger)
	require.NoError(t, err)
	got, err := reopened.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", got.Data["host"])
	assert.Equal(t, "INBOX", got.Data["folder"])
}

func TestUpdateMergesAndNotifiesOnce(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.Create("acct", map[string]any{
		"host":     "imap.example.org",
		"username": "me@example.org",
		"token":    "old-token",
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(entry.ID, map[string]any{"token": "new-token"}))

	got, err := s.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.Data["token"], "merged field overrides")
	assert.Equal(t, "imap.example.org", got.Data["host"], "untouched fields survive the merge")

	select {
	case id := <-s.ReloadChan():
		assert.Equal(t, entry.ID, id)
	default:
		t.Fatal("update must trigger a reload notification")
	}

	select {
	case <-s.ReloadChan():
		t.Fatal("update must trigger exactly one reload notification")
	default:
	}
}

func TestUpdateUnknownEntry(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Update("nope", map[string]any{"token": "t"}))
}
