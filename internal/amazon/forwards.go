package amazon

import "strings"

// Parse status values.
const (
	StatusOK = "ok"
	// StatusAmazonDomain flags a forwarding address on an amazon domain.
	// Forwarding to the vendor's own domain would create a notification loop.
	StatusAmazonDomain = "amazon_domain"
)

// noValuePlaceholders are inputs treated the same as an empty field.
var noValuePlaceholders = map[string]bool{
	"":       true,
	"(none)": true,
}

// Parse validates a free-text forwarding-address field and splits it into a
// list of addresses. The best-effort list is returned even when the input is
// rejected, so a re-rendered form can show what the user submitted.
func Parse(raw string) (string, []string) {
	status := StatusOK
	if strings.Contains(raw, "@amazon") {
		status = StatusAmazonDomain
	}

	forwards := []string{}
	switch {
	case strings.Contains(raw, ","):
		forwards = strings.Split(raw, ",")
	case noValuePlaceholders[raw]:
		// nothing configured
	default:
		forwards = append(forwards, raw)
	}

	return status, forwards
}
