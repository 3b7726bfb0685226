package shortener

import (
	"net/url"
	"strings"
)

// MaxURLLength bounds the size of accepted URLs.
const MaxURLLength = 2048

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalidURL("url is required")
	}

	if len(raw) > MaxURLLength {
		return invalidURL("url exceeds maximum length")
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return invalidURL("url is not a valid absolute url")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalidURL("url scheme must be http or https")
	}

	if parsed.Host == "" {
		return invalidURL("url must have a host")
	}

	return nil
}
