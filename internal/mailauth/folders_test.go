package mailauth

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListing(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name     string
		lines    []string
		expected []string
	}{
		{
			name: "slash delimiter",
			lines: []string{
				`(\HasNoChildren) "/" INBOX`,
				`(\HasChildren \Noselect) "/" [Gmail]`,
				`(\HasNoChildren \Sent) "/" [Gmail]/Sent Mail`,
			},
			expected: []string{"INBOX", "[Gmail]", "[Gmail]/Sent Mail"},
		},
		{
			name: "period delimiter fallback",
			lines: []string{
				`(\HasNoChildren) "." INBOX`,
				`(\HasNoChildren) "." INBOX.Receipts`,
			},
			expected: []string{"INBOX", "INBOX.Receipts"},
		},
		{
			name: "single failing entry falls back for whole listing",
			lines: []string{
				`(\HasNoChildren) "/" INBOX`,
				`(\HasNoChildren) "." INBOX.Receipts`,
			},
			expected: []string{DefaultFolder},
		},
		{
			name: "unparseable listing collapses to default",
			lines: []string{
				`(\HasNoChildren) "|" INBOX`,
				`garbage`,
			},
			expected: []string{DefaultFolder},
		},
		{
			name:     "server order preserved without dedup",
			lines:    []string{`() "/" B`, `() "/" A`, `() "/" A`},
			expected: []string{"B", "A", "A"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseListing(tc.lines, logger))
		})
	}
}

func TestParseListingEmpty(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	assert.Empty(t, ParseListing(nil, logger))
}
