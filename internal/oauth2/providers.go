package oauth2

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requested per provider.
const (
	GmailScope = "https://mail.google.com/"
	O365Scope  = "https://outlook.office365.com/.default"
)

// GoogleEndpoint is the fixed Google authorization server. Not configurable.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GetGoogleConfig returns the OAuth2 config for Google
func GetGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			GmailScope,
		},
		Endpoint: GoogleEndpoint,
	}
}

// GetMicrosoftConfig returns the OAuth2 config for the Microsoft identity
// platform. The authority is tenant-scoped; an empty tenant is rejected
// before any network call is made.
func GetMicrosoftConfig(clientID, clientSecret, tenantID, redirectURL string) (*oauth2.Config, error) {
	if tenantID == "" {
		return nil, ErrMissingTenantID
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://outlook.office.com/IMAP.AccessAsUser.All",
			"offline_access",
		},
		Endpoint: microsoft.AzureADEndpoint(tenantID),
	}, nil
}

// GetProviderConfig returns the OAuth2 config for a specific provider
func GetProviderConfig(provider, clientID, clientSecret, tenantID, redirectURL string) (*oauth2.Config, error) {
	switch provider {
	case "gmail":
		return GetGoogleConfig(clientID, clientSecret, redirectURL), nil
	case "o365":
		return GetMicrosoftConfig(clientID, clientSecret, tenantID, redirectURL)
	default:
		return nil, fmt.Errorf("unsupported OAuth2 provider: %s", provider)
	}
}
