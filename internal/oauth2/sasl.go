package oauth2

import (
	"github.com/emersion/go-sasl"
)

// AuthString builds the SASL bearer blob for XOAUTH2:
// "user=<username>\x01auth=Bearer <token>\x01\x01"
func AuthString(username, token string) string {
	return "user=" + username + "\x01auth=Bearer " + token + "\x01\x01"
}

// NewXOAUTH2Client creates a new SASL client for XOAUTH2 authentication
func NewXOAUTH2Client(username, token string) sasl.Client {
	return &xoauth2Client{
		username: username,
		token:    token,
	}
}

// xoauth2Client implements the XOAUTH2 SASL mechanism
type xoauth2Client struct {
	username string
	token    string
}

// Start begins the SASL exchange
func (a *xoauth2Client) Start() (mech string, ir []byte, err error) {
	return "XOAUTH2", []byte(AuthString(a.username, a.token)), nil
}

// Next continues the SASL exchange. XOAUTH2 is a single round-trip
// mechanism, so a server challenge is always unexpected.
func (a *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	return nil, sasl.ErrUnexpectedServerChallenge
}
