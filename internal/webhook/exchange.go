package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	xoauth "github.com/altafino/mail-watcher/internal/oauth2"
)

// ProviderError classifies a failed token-endpoint response. None of these
// are retried automatically.
type ProviderError struct {
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.StatusCode)
}

// providerErrorCodes are the statuses classified as provider errors.
var providerErrorCodes = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnprocessableEntity: true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
}

// TokenPair is the result of a successful authorization-code exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeConfig identifies the provider and client for a code exchange.
type ExchangeConfig struct {
	Provider     string // "o365" or "gmail"
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURI  string

	// TokenURL overrides the provider token endpoint. Used by tests.
	TokenURL string
}

func (c ExchangeConfig) tokenURL() (string, error) {
	if c.TokenURL != "" {
		return c.TokenURL, nil
	}
	switch c.Provider {
	case "o365":
		if c.TenantID == "" {
			return "", xoauth.ErrMissingTenantID
		}
		return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID), nil
	case "gmail":
		return xoauth.GoogleEndpoint.TokenURL, nil
	default:
		return "", fmt.Errorf("unsupported OAuth2 provider: %s", c.Provider)
	}
}

// Exchange posts the authorization code to the provider's token endpoint
// once. Statuses 400, 422, 429 and 500 are classified as provider errors and
// logged; nothing is persisted on failure.
func (m *Manager) Exchange(ctx context.Context, code string, cfg ExchangeConfig) (*TokenPair, error) {
	endpoint, err := cfg.tokenURL()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("scope", cfg.Scope)
	form.Set("code", code)
	form.Set("redirect_uri", cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if providerErrorCodes[resp.StatusCode] {
			m.logger.Error("problem getting token", "status", resp.StatusCode)
			return nil, &ProviderError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("unexpected token endpoint status %d", resp.StatusCode)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &pair, nil
}
