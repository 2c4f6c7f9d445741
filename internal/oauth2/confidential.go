package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

// ErrMissingTenantID is returned when the tenant-scoped authority policy
// requires a tenant identifier and none was supplied.
var ErrMissingTenantID = errors.New("missing tenant id for tenant-scoped authority")

// TokenError carries the provider's diagnostic fields when a token response
// has no usable access token. The fields are logged, never shown verbatim.
type TokenError struct {
	Code          string
	Description   string
	CorrelationID string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token acquisition failed: %s", e.Code)
}

// AppCredentials identify a confidential client against the Microsoft
// identity platform.
type AppCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c AppCredentials) cacheKey() string {
	return c.ClientID + "|" + c.TenantID
}

// ConfidentialClient performs the app-only client-credentials grant with
// silent-cache-first semantics. A valid cached token is returned without a
// network round trip; failed acquisitions are surfaced once and never retried
// automatically.
type ConfidentialClient struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*oauth2.Token

	// TokenURL overrides the tenant-scoped Microsoft token endpoint.
	// Used by tests; leave empty in production.
	TokenURL string
}

// NewConfidentialClient creates a confidential client with an empty token cache.
func NewConfidentialClient(logger *slog.Logger) *ConfidentialClient {
	return &ConfidentialClient{
		logger: logger,
		cache:  make(map[string]*oauth2.Token),
	}
}

// AcquireToken returns an access token for the given client identity. This is
// a blocking network call on a cache miss; callers dispatch it to the worker
// pool.
func (c *ConfidentialClient) AcquireToken(ctx context.Context, creds AppCredentials) (string, error) {
	if creds.TenantID == "" {
		c.logger.Error("no tenant id configured")
		return "", ErrMissingTenantID
	}

	c.mu.Lock()
	if tok, ok := c.cache[creds.cacheKey()]; ok && tok.Valid() {
		c.mu.Unlock()
		c.logger.Debug("using cached token", "client_id", creds.ClientID)
		return tok.AccessToken, nil
	}
	c.mu.Unlock()

	tokenURL := c.TokenURL
	if tokenURL == "" {
		tokenURL = microsoft.AzureADEndpoint(creds.TenantID).TokenURL
	}

	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       creds.Scopes,
	}

	c.logger.Debug("no token cached, getting new token", "token_url", tokenURL)
	tok, err := cfg.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		switch {
		case errors.As(err, &re):
			terr := decodeTokenError(re.Body)
			c.logger.Error("token endpoint returned an error",
				"code", terr.Code,
				"description", terr.Description,
				"correlation_id", terr.CorrelationID,
			)
			return "", terr
		case strings.Contains(err.Error(), "missing access_token"):
			// A 2xx response without an access token fails inside the
			// oauth2 package with an untyped error.
			c.logger.Error("token endpoint returned no access token")
			return "", &TokenError{Code: "invalid_token_response", Description: "response carried no access token"}
		default:
			return "", fmt.Errorf("failed to acquire token: %w", err)
		}
	}

	c.mu.Lock()
	c.cache[creds.cacheKey()] = tok
	c.mu.Unlock()

	return tok.AccessToken, nil
}

func decodeTokenError(body []byte) *TokenError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		CorrelationID    string `json:"correlation_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &TokenError{Code: "invalid_token_response"}
	}
	return &TokenError{
		Code:          payload.Error,
		Description:   payload.ErrorDescription,
		CorrelationID: payload.CorrelationID,
	}
}
