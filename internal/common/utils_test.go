package common

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "plain", input: "https://example.com/a", want: "https://example.com/a", wantOK: true},
		{name: "trailing comma", input: "https://example.com,", want: "https://example.com", wantOK: true},
		{name: "markdown link", input: "[docs](https://example.com/docs)", want: "https://example.com/docs", wantOK: true},
		{name: "wrapped", input: " <https://example.com> ", want: "https://example.com", wantOK: true},
		{name: "port", input: "http://127.0.0.1:8080/page", want: "http://127.0.0.1:8080/page", wantOK: true},
		{name: "ftp", input: "ftp://example.com", wantOK: false},
		{name: "space", input: "https://exa mple.com", wantOK: false},
		{name: "empty", input: "  ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidateURL(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ValidateURL(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ValidateURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeAndValidateURLs(t *testing.T) {
	valid, invalid := SanitizeAndValidateURLs([]string{"https://a.com", "nope", "http://b.org/x."})

	if len(valid) != 2 || valid[1] != "http://b.org/x" {
		t.Errorf("valid = %v", valid)
	}
	if len(invalid) != 1 || invalid[0] != "nope" {
		t.Errorf("invalid = %v", invalid)
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com": true,
		"HTTP://EXAMPLE.COM":  true,
		"docs/page.html":      false,
		"shards/en-001.shard": false,
	}
	for input, want := range tests {
		if got := IsURL(input); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", input, got, want)
		}
	}
}
