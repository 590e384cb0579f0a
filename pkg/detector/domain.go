package detector

import (
	"net/url"
	"regexp"
	"strings"
)

// LocalGroup is the domain, country and category of inputs without a host,
// such as local files.
const LocalGroup = "local"

var (
	doiPattern   = regexp.MustCompile(`10\.\d{4,}/[^\s]+`)
	arxivPattern = regexp.MustCompile(`arXiv:\d{4}\.\d{4,5}`)

	academicDomains = []string{
		"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"scholar.google.com", "researchgate.net", "academia.edu",
		"biorxiv.org", "medrxiv.org", "ssrn.com",
	}

	countryTLDs = map[string]string{
		"uk": "uk", "de": "de", "fr": "fr", "jp": "jp", "cn": "cn",
		"au": "au", "ca": "ca", "in": "in", "br": "br", "ru": "ru",
		"it": "it", "es": "es", "nl": "nl", "se": "se", "ch": "ch",
	}

	newsHosts = []string{"techcrunch", "wired", "arstechnica", "theverge", "hacker", "news"}
)

// AcademicThreshold is the AcademicScore from which a page on an ordinary
// host is classified as academic.
const AcademicThreshold = 3.0

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DomainType classifies the host of rawURL as gov, edu, academic, mobile or
// commercial. text upgrades a commercial or mobile page to academic when it
// scores at least AcademicThreshold. Inputs without a host are LocalGroup.
func DomainType(rawURL, text string) string {
	host := hostOf(rawURL)
	if host == "" {
		return LocalGroup
	}
	domainType := hostType(host)
	if (domainType == "commercial" || domainType == "mobile") && AcademicScore(text) >= AcademicThreshold {
		return "academic"
	}
	return domainType
}

func hostType(host string) string {
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".mil"):
		return "gov"
	case strings.HasSuffix(host, ".edu"):
		return "edu"
	}
	for _, domain := range academicDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return "academic"
		}
	}
	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return "mobile"
	}
	return "commercial"
}

// Country returns the country implied by the top-level domain of rawURL.
// gov, edu and mil hosts are us. Other hosts are unknown.
func Country(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return LocalGroup
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return UnknownGroup
	}

	tld := parts[len(parts)-1]
	if country, ok := countryTLDs[tld]; ok {
		return country
	}
	if tld == "gov" || tld == "edu" || tld == "mil" {
		return "us"
	}
	return UnknownGroup
}

// Category sorts rawURL into a site category such as gov|health, docs|api
// or blog. Parts are joined with "|" so the result is a valid group key.
func Category(rawURL, text string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return LocalGroup
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	switch DomainType(rawURL, text) {
	case "gov":
		if containsAny(host, "health", "cdc", "nih", "fda") {
			return "gov|health"
		}
		return "gov|general"
	case "academic", "edu":
		if strings.Contains(path, "/ai/") || strings.Contains(path, "/ml/") || strings.HasPrefix(host, "ai.") {
			return "academic|ai"
		}
		return "academic|general"
	}

	switch {
	case containsAny(host, "docs.", "documentation.", "api."),
		containsAny(path, "/docs/", "/documentation/", "/api/"):
		return "docs|api"
	case strings.Contains(host, "blog.") || strings.Contains(path, "/blog/"):
		return "blog"
	case containsAny(host, newsHosts...):
		return "news|tech"
	}
	return "general"
}

// AcademicScore rates text from 0 to 10 on signs of a research paper: DOI
// and arXiv identifiers weigh 3 each, LaTeX 1.5, citations and a reference
// section 1 each, an abstract 0.5.
func AcademicScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	if doiPattern.MatchString(text) {
		score += 3
	}
	if arxivPattern.MatchString(text) {
		score += 3
	}
	if containsAny(text, `\begin{`, `\end{`, `\cite{`, `\ref{`, `\label{`) {
		score += 1.5
	}

	citations := 0
	for _, marker := range []string{"et al.", "et al ", "[1]", "[2]", "(1)", "(2)"} {
		if strings.Contains(lower, marker) {
			citations++
		}
	}
	if citations >= 2 {
		score++
	}
	if containsAny(lower, "references", "bibliography") {
		score++
	}
	if strings.Contains(lower, "abstract") {
		score += 0.5
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
