package oauth2

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAcquireTokenMissingTenant(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewConfidentialClient(testLogger())
	c.TokenURL = srv.URL

	_, err := c.AcquireToken(context.Background(), AppCredentials{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{O365Scope},
	})

	assert.ErrorIs(t, err, ErrMissingTenantID)
	assert.Zero(t, calls.Load(), "no network call may happen without a tenant id")
}

func TestAcquireToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	c := NewConfidentialClient(testLogger())
	c.TokenURL = srv.URL

	creds := AppCredentials{
		TenantID:     "tenant-1",
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{O365Scope},
	}

	tok, err := c.AcquireToken(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	// Second acquisition is served silently from the cache.
	tok, err = c.AcquireToken(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAcquireTokenProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret","correlation_id":"corr-42"}`))
	}))
	defer srv.Close()

	c := NewConfidentialClient(testLogger())
	c.TokenURL = srv.URL

	_, err := c.AcquireToken(context.Background(), AppCredentials{
		TenantID:     "tenant-1",
		ClientID:     "client",
		ClientSecret: "wrong",
	})

	var terr *TokenError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "invalid_client", terr.Code)
	assert.Equal(t, "bad secret", terr.Description)
	assert.Equal(t, "corr-42", terr.CorrelationID)
}

func TestAcquireTokenEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	c := NewConfidentialClient(testLogger())
	c.TokenURL = srv.URL

	_, err := c.AcquireToken(context.Background(), AppCredentials{
		TenantID:     "tenant-1",
		ClientID:     "client",
		ClientSecret: "secret",
	})

	var terr *TokenError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "invalid_token_response", terr.Code)
}

func TestAuthString(t *testing.T) {
	assert.Equal(t,
		"user=me@example.com\x01auth=Bearer tok\x01\x01",
		AuthString("me@example.com", "tok"),
	)
}

func TestXOAUTH2ClientStart(t *testing.T) {
	client := NewXOAUTH2Client("me@example.com", "tok")

	mech, ir, err := client.Start()
	require.NoError(t, err)
	assert.Equal(t, "XOAUTH2", mech)
	assert.Equal(t, []byte(AuthString("me@example.com", "tok")), ir)

	_, err = client.Next([]byte("challenge"))
	assert.Error(t, err)
}
