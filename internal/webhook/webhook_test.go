package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	reg := NewRegistration("https://example.org", "", false)
	return NewManager(reg, slog.New(slog.DiscardHandler))
}

func TestValidateRequirements(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
		ok   bool
	}{
		{"https local url", Registration{LocalURL: "https://example.org/api/webhook/abc"}, true},
		{"cloudhook set", Registration{LocalURL: "http://homelab:8123/api/webhook/abc", CloudhookURL: "https://hooks.cloud/relay"}, true},
		{"active cloud subscription", Registration{LocalURL: "http://homelab:8123/api/webhook/abc", CloudActive: true}, true},
		{"plain http only", Registration{LocalURL: "http://homelab:8123/api/webhook/abc"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.reg.ValidateRequirements()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotReachable)
			}
		})
	}
}

func TestRegistrationURLPrefersCloudhook(t *testing.T) {
	reg := NewRegistration("https://example.org", "https://hooks.cloud/relay", true)
	assert.Equal(t, "https://hooks.cloud/relay", reg.URL())

	reg.CloudActive = false
	assert.True(t, strings.HasPrefix(reg.URL(), "https://example.org/api/webhook/"))
}

func TestHandleCallbackQueryCode(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-1")

	req := httptest.NewRequest(http.MethodGet, "/api/webhook/x?code=auth-code&state=state-1", nil)
	rec := httptest.NewRecorder()
	m.HandleCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth-code", <-codeCh)
}

func TestHandleCallbackJSONBody(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-2")

	body := strings.NewReader(`{"code":"json-code","state":"state-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/x", body)
	rec := httptest.NewRecorder()
	m.HandleCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "json-code", <-codeCh)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-3")

	req := httptest.NewRequest(http.MethodGet, "/api/webhook/x?state=state-3", nil)
	rec := httptest.NewRecorder()
	m.HandleCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	select {
	case <-codeCh:
		t.Fatal("pending exchange must not resolve without a code")
	default:
	}
}

func TestHandleCallbackDuplicateIsNoOp(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-4")

	first := httptest.NewRequest(http.MethodGet, "/api/webhook/x?code=one&state=state-4", nil)
	m.HandleCallback(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodGet, "/api/webhook/x?code=two&state=state-4", nil)
	m.HandleCallback(httptest.NewRecorder(), second)

	assert.Equal(t, "one", <-codeCh)
	select {
	case code := <-codeCh:
		t.Fatalf("duplicate callback resolved a second time with %q", code)
	default:
	}
}

func TestResolvedExchangeIsDropped(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-5")

	req := httptest.NewRequest(http.MethodGet, "/api/webhook/x?code=auth-code&state=state-5", nil)
	m.HandleCallback(httptest.NewRecorder(), req)

	assert.Equal(t, "auth-code", <-codeCh)

	m.mu.Lock()
	remaining := len(m.pending)
	m.mu.Unlock()
	assert.Zero(t, remaining, "resolved exchanges must not accumulate")
}

func TestAbandonRemovesPendingExchange(t *testing.T) {
	m := testManager(t)
	codeCh := m.Expect("state-6")
	m.Abandon("state-6")

	req := httptest.NewRequest(http.MethodGet, "/api/webhook/x?code=late&state=state-6", nil)
	rec := httptest.NewRecorder()
	m.HandleCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case code := <-codeCh:
		t.Fatalf("abandoned exchange received %q", code)
	default:
	}

	m.mu.Lock()
	remaining := len(m.pending)
	m.mu.Unlock()
	assert.Zero(t, remaining)

	// Abandoning an unknown state is harmless.
	m.Abandon("never-registered")
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	m := testManager(t)
	pair, err := m.Exchange(context.Background(), "the-code", ExchangeConfig{
		Provider:     "o365",
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURI:  "https://localhost",
		TokenURL:     srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "at", pair.AccessToken)
	assert.Equal(t, "rt", pair.RefreshToken)
}

func TestExchangeProviderErrors(t *testing.T) {
	for _, status := range []int{400, 422, 429, 500} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			m := testManager(t)
			_, err := m.Exchange(context.Background(), "bad-code", ExchangeConfig{
				Provider: "gmail",
				TokenURL: srv.URL,
			})

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, status, perr.StatusCode)
		})
	}
}

func TestExchangeMissingTenant(t *testing.T) {
	m := testManager(t)
	_, err := m.Exchange(context.Background(), "code", ExchangeConfig{Provider: "o365"})
	assert.Error(t, err)
}
