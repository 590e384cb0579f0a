package detector

import (
	"fmt"
	"strings"
)

// DefaultGroup is the key every document gets when grouping is off.
const DefaultGroup = "all"

// Grouping modes.
const (
	ByLanguage = "language"
	ByDomain   = "domain"
	ByCountry  = "country"
	ByCategory = "category"
	ByNone     = "none"
)

// Modes lists the accepted grouping modes.
var Modes = []string{ByLanguage, ByDomain, ByCountry, ByCategory, ByNone}

// ValidateMode checks that mode is one of Modes.
func ValidateMode(mode string) error {
	for _, m := range Modes {
		if mode == m {
			return nil
		}
	}
	return fmt.Errorf("unknown group-by mode %q (want %s)", mode, strings.Join(Modes, ", "))
}

// Grouper picks the group key of a document. It is safe for concurrent use.
type Grouper struct {
	mode     string
	language *Detector
}

// NewGrouper returns a Grouper for mode. languages is only used by
// ByLanguage.
func NewGrouper(mode string, languages []string) (*Grouper, error) {
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}
	g := &Grouper{mode: mode}
	if mode == ByLanguage {
		d, err := New(languages)
		if err != nil {
			return nil, fmt.Errorf("failed to build language detector: %w", err)
		}
		g.language = d
	}
	return g, nil
}

// Mode returns the grouping mode.
func (g *Grouper) Mode() string {
	if g == nil {
		return ByNone
	}
	return g.mode
}

// Group returns the key for a document read from source. A nil Grouper
// returns DefaultGroup.
func (g *Grouper) Group(source, text string) string {
	switch g.Mode() {
	case ByLanguage:
		return g.language.Detect(text)
	case ByDomain:
		return DomainType(source, text)
	case ByCountry:
		return Country(source)
	case ByCategory:
		return Category(source, text)
	default:
		return DefaultGroup
	}
}
