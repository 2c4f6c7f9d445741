package mailauth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
)

// DefaultFolder is returned when the server listing cannot be parsed at all.
const DefaultFolder = "INBOX"

// ListFolders enumerates the account's folders in server order, no
// de-duplication. Folder delimiters are server-specific and not advertised
// reliably before listing, so the listing is parsed assuming "/" first and
// re-parsed with "." when that fails. This call never hard-fails: the worst
// outcome is the single default folder.
func (c *Client) ListFolders(p ConnParams) []string {
	conn, err := c.dial(p)
	if err != nil {
		c.logger.Error("error connecting for mailbox listing, using default", "error", err)
		return []string{DefaultFolder}
	}
	defer conn.Logout()

	if err := c.authenticate(conn, p); err != nil {
		c.logger.Error("error authenticating for mailbox listing, using default", "error", err)
		return []string{DefaultFolder}
	}

	mailboxes := make(chan *imap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- conn.List("", "*", mailboxes)
	}()

	var lines []string
	for m := range mailboxes {
		lines = append(lines, rawListLine(m))
	}

	if err := <-done; err != nil {
		c.logger.Error("error listing mailboxes, using default", "error", err)
		return []string{DefaultFolder}
	}

	return ParseListing(lines, c.logger)
}

// rawListLine reconstructs the wire form of a LIST response entry:
// <flags> "<delimiter>" <folder-name>
func rawListLine(m *imap.MailboxInfo) string {
	return fmt.Sprintf("(%s) %q %s", strings.Join(m.Attributes, " "), m.Delimiter, m.Name)
}

// ParseListing extracts the trailing folder name from each listing entry.
// The "/" delimiter is assumed first; if any entry fails to split, the whole
// listing is re-parsed with "."; if that fails too the result collapses to
// the default folder.
func ParseListing(lines []string, logger *slog.Logger) []string {
	names, err := splitListing(lines, `"/"`)
	if err != nil {
		logger.Error("error creating folder list, trying period delimiter")
		names, err = splitListing(lines, `"."`)
		if err != nil {
			logger.Error("error creating folder list, using INBOX")
			return []string{DefaultFolder}
		}
	}
	return names
}

func splitListing(lines []string, delim string) ([]string, error) {
	token := " " + delim + " "
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		_, name, found := strings.Cut(line, token)
		if !found {
			return nil, fmt.Errorf("entry %q does not use delimiter %s", line, delim)
		}
		names = append(names, name)
	}
	return names, nil
}
