package common

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

	// Must start with http:// or https://, have a valid domain
	// (alphanumeric, dots, hyphens) and may have a port, path, query, fragment
	urlPattern = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:[0-9]+)?(/[^\s]*)?$`)
)

// IsURL reports whether input looks like an http(s) URL rather than a file path.
func IsURL(input string) bool {
	cleaned := strings.ToLower(SanitizeURL(input))
	return strings.HasPrefix(cleaned, "http://") || strings.HasPrefix(cleaned, "https://")
}

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation, markdown artifacts, and encodes spaces.
func SanitizeURL(rawURL string) string {
	// Trim all whitespace from edges
	cleaned := strings.TrimSpace(rawURL)

	// Extract URL from markdown link format: [text](url) -> url
	// Example: "[click here](https://example.com)" -> "https://example.com"
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	// Remove common trailing punctuation from copy-paste errors
	// Example: "https://example.com," -> "https://example.com"
	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	// Remove leading markdown/formatting artifacts
	// Example: "(https://example.com)" -> "https://example.com"
	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	// Trim again after removing punctuation (in case there was whitespace before punctuation)
	cleaned = strings.TrimSpace(cleaned)

	return cleaned
}

// SanitizeAndValidateURLs sanitizes all URLs and returns (sanitized URLs, invalid URLs).
// Invalid URLs are those that fail validation even after sanitization.
func SanitizeAndValidateURLs(urls []string) ([]string, []string) {
	sanitized := make([]string, 0, len(urls))
	var invalidURLs []string

	for _, rawURL := range urls {
		cleaned, ok := ValidateURL(rawURL)
		if !ok {
			invalidURLs = append(invalidURLs, rawURL)
			continue
		}
		sanitized = append(sanitized, cleaned)
	}

	return sanitized, invalidURLs
}

// ValidateURL sanitizes a single URL and reports whether the result is usable.
func ValidateURL(rawURL string) (string, bool) {
	cleaned := SanitizeURL(rawURL)

	// Empty URLs after sanitization are invalid
	if cleaned == "" {
		return "", false
	}

	// Reject URLs with literal spaces (must be pre-encoded as %20)
	if strings.Contains(cleaned, " ") {
		return "", false
	}

	if !urlPattern.MatchString(cleaned) {
		return "", false
	}

	// Use net/url to validate structure
	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if parsed.Host == "" {
		return "", false
	}

	// Check for suspicious characters in domain that indicate malformed URL
	// Example: "https://example.com{}" should fail
	if strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return "", false
	}

	return cleaned, true
}
