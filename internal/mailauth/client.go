package mailauth

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	xoauth "github.com/altafino/mail-watcher/internal/oauth2"
	"github.com/emersion/go-imap/client"
)

// ConnParams describe one IMAP connection attempt. Exactly one of Password
// or Token must be set.
type ConnParams struct {
	Host     string
	Port     int
	Username string
	Password string
	Token    string
	Timeout  time.Duration
}

// Client validates credentials and enumerates folders against a live IMAP
// server.
type Client struct {
	logger *slog.Logger
}

// NewClient creates a new mail authentication client
func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// dial opens the connection. Port 143 starts plain and upgrades with
// STARTTLS; everything else uses direct TLS.
func (c *Client) dial(p ConnParams) (*client.Client, error) {
	server := fmt.Sprintf("%s:%d", p.Host, p.Port)

	tlsConfig := &tls.Config{
		ServerName: p.Host,
		MinVersion: tls.VersionTLS12,
	}

	var conn *client.Client
	var err error

	if p.Port == 143 {
		c.logger.Debug("using port 143, starting with plain connection")
		conn, err = client.Dial(server)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}

		if err := conn.StartTLS(tlsConfig); err != nil {
			c.logger.Warn("STARTTLS failed, continuing with plain connection", "error", err)
		}
	} else {
		conn, err = client.DialTLS(server, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
	}

	conn.Timeout = p.Timeout

	return conn, nil
}

// authenticate logs in with plain credentials, or with a SASL bearer string
// when a token is supplied.
func (c *Client) authenticate(conn *client.Client, p ConnParams) error {
	if p.Token != "" {
		if err := conn.Authenticate(xoauth.NewXOAUTH2Client(p.Username, p.Token)); err != nil {
			return fmt.Errorf("XOAUTH2 authentication failed: %w", err)
		}
		return nil
	}

	if err := conn.Login(p.Username, p.Password); err != nil {
		return fmt.Errorf("IMAP login failed: %w", err)
	}
	return nil
}

// Verify reports whether the credential works against the mail server. It
// never returns an error; any connectivity or authentication failure is
// logged and mapped to false. The transient connection is closed before
// returning.
func (c *Client) Verify(p ConnParams) bool {
	conn, err := c.dial(p)
	if err != nil {
		c.logger.Error("unable to reach mail server",
			"host", p.Host,
			"port", p.Port,
			"error", err,
		)
		return false
	}
	defer conn.Logout()

	if err := c.authenticate(conn, p); err != nil {
		c.logger.Error("authentication failed",
			"host", p.Host,
			"username", p.Username,
			"error", err,
		)
		return false
	}

	c.logger.Debug("credential verified", "host", p.Host, "username", p.Username)
	return true
}

// MessageCount authenticates and reports how many messages the folder holds.
// Used by the poller, not by the wizard.
func (c *Client) MessageCount(p ConnParams, folder string) (uint32, error) {
	conn, err := c.dial(p)
	if err != nil {
		return 0, err
	}
	defer conn.Logout()

	if err := c.authenticate(conn, p); err != nil {
		return 0, err
	}

	mbox, err := conn.Select(folder, true)
	if err != nil {
		return 0, fmt.Errorf("failed to select folder %q: %w", folder, err)
	}

	return mbox.Messages, nil
}
