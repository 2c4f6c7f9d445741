package oauth2

import (
	"context"
	"fmt"

	goauth2 "golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailAddress resolves the authenticated account's email address. The
// interactive consent flow never asks for a username, so it is read from the
// Gmail profile once the token exchange has completed.
func GmailAddress(ctx context.Context, accessToken string) (string, error) {
	ts := goauth2.StaticTokenSource(&goauth2.Token{AccessToken: accessToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}

	profile, err := svc.Users.GetProfile("me").Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch gmail profile: %w", err)
	}

	return profile.EmailAddress, nil
}
