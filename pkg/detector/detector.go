// Package detector picks the grouping key of a document from its language
// or from the site it was fetched from.
package detector

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// UnknownGroup is returned when no configured language is a confident match.
const UnknownGroup = "unknown"

// DefaultLanguages are the ISO 639-1 codes used when none are configured.
var DefaultLanguages = []string{"en", "de", "fr", "es"}

// Detector maps text to a lower-case ISO 639-1 language code.
// It is safe for concurrent use by shard workers.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a Detector restricted to the given ISO 639-1 codes.
// At least two languages are required.
func New(codes []string) (*Detector, error) {
	if len(codes) == 0 {
		codes = DefaultLanguages
	}

	languages := make([]lingua.Language, 0, len(codes))
	seen := make(map[lingua.Language]bool)
	for _, code := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		language := lingua.GetLanguageFromIsoCode639_1(iso)
		if language == lingua.Unknown {
			return nil, fmt.Errorf("unsupported language code: %q", code)
		}
		if !seen[language] {
			seen[language] = true
			languages = append(languages, language)
		}
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("at least two languages are required, got %d", len(languages))
	}

	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}, nil
}

// Detect returns the language code of text, or UnknownGroup.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return UnknownGroup
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return UnknownGroup
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
