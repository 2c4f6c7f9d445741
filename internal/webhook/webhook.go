package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotReachable means no HTTPS-reachable callback URL exists, so the
// interactive consent flow cannot receive the authorization code.
var ErrNotReachable = errors.New("webhook is not reachable over https")

// Registration is a registered callback endpoint. The externally visible URL
// is either the direct local URL or a cloud-relayed one.
type Registration struct {
	ID           string
	LocalURL     string
	CloudhookURL string
	CloudActive  bool
}

// NewRegistration registers a callback id under the given base URL.
func NewRegistration(baseURL, cloudhookURL string, cloudActive bool) Registration {
	id := uuid.NewString()
	return Registration{
		ID:           id,
		LocalURL:     strings.TrimSuffix(baseURL, "/") + "/api/webhook/" + id,
		CloudhookURL: cloudhookURL,
		CloudActive:  cloudActive,
	}
}

// URL returns the externally visible callback URL, preferring the cloudhook
// when a cloud subscription is active.
func (r Registration) URL() string {
	if r.CloudActive && r.CloudhookURL != "" {
		return r.CloudhookURL
	}
	return r.LocalURL
}

// ValidateRequirements ensures the callback can actually be reached before a
// consent URL is ever presented to the user.
func (r Registration) ValidateRequirements() error {
	if r.CloudActive {
		return nil
	}
	if r.CloudhookURL != "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(r.LocalURL), "https://") {
		return nil
	}
	return ErrNotReachable
}

// pendingExchange correlates one outstanding authorization-code callback by
// its caller-supplied state value. At most one resolution is accepted; the
// record is removed from the map on resolution.
type pendingExchange struct {
	state  string
	codeCh chan string
}

// Manager owns the registration and the pending exchanges keyed by state.
type Manager struct {
	logger *slog.Logger
	reg    Registration

	mu      sync.Mutex
	pending map[string]*pendingExchange
}

// NewManager creates a webhook manager for a validated registration.
func NewManager(reg Registration, logger *slog.Logger) *Manager {
	return &Manager{
		logger:  logger,
		reg:     reg,
		pending: make(map[string]*pendingExchange),
	}
}

// Registration returns the managed registration.
func (m *Manager) Registration() Registration {
	return m.reg
}

// Expect registers a pending exchange for the given state value and returns
// the channel on which the authorization code will be delivered exactly once.
func (m *Manager) Expect(state string) <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &pendingExchange{
		state:  state,
		codeCh: make(chan string, 1),
	}
	m.pending[state] = p
	return p.codeCh
}

// HandleCallback receives the authorization-code redirect. The code arrives
// as a query parameter or in a JSON body. A callback without a code is logged
// and discarded without resolving the pending exchange; a duplicate or late
// callback after resolution is a no-op.
func (m *Manager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" && r.Body != nil {
		var body struct {
			Code  string `json:"code"`
			State string `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			code = body.Code
			if state == "" {
				state = body.State
			}
		}
	}

	if code == "" {
		m.logger.Error("authorization code missing from callback")
		http.Error(w, "No code provided", http.StatusBadRequest)
		return
	}

	if !m.resolve(state, code) {
		m.logger.Debug("callback for already resolved or unknown exchange", "state", state)
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<html><body>Authentication successful. You can close this window and return to the application.</body></html>`)
}

// resolve delivers the code to the pending exchange, at most once. The record
// is dropped after delivery so long-lived processes do not accumulate
// completed exchanges; late callbacks then find no entry and are no-ops.
func (m *Manager) resolve(state, code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[state]
	if !ok {
		return false
	}

	p.codeCh <- code
	delete(m.pending, state)
	return true
}

// Abandon removes a pending exchange whose caller stopped waiting, e.g. an
// aborted setup flow. Safe to call for unknown or already resolved states.
func (m *Manager) Abandon(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, state)
}
