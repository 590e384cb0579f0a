package mapreduce

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
)

// isValidKeyword checks if a keyword should be included in results.
// Filters malformed tokens (unmatched delimiters, trailing special chars, unmatched quotes).
// Conservative approach: only removes obviously broken tokens, keeps technical terms like x_train.
func isValidKeyword(word string) bool {
	// Remove trailing special characters (likely incomplete tokens)
	if strings.HasSuffix(word, ":") || strings.HasSuffix(word, "=") {
		return false
	}

	// Check for unmatched opening delimiters
	if strings.Contains(word, "(") && !strings.Contains(word, ")") {
		return false
	}
	if strings.Contains(word, "[") && !strings.Contains(word, "]") {
		return false
	}
	if strings.Contains(word, "{") && !strings.Contains(word, "}") {
		return false
	}

	// Check for unmatched quotes (injection/malformed strings)
	quoteCount := strings.Count(word, "\"")
	if quoteCount%2 != 0 {
		return false
	}
	singleQuoteCount := strings.Count(word, "'")
	if singleQuoteCount%2 != 0 {
		return false
	}

	return true
}

// topValid returns up to n entries by count, skipping malformed keywords.
func topValid(counts *freqmap.FreqMap, n int) []freqmap.Entry {
	if n <= 0 {
		return nil
	}
	var valid []freqmap.Entry
	for _, e := range counts.TopN(counts.Size()) {
		if !isValidKeyword(e.Key) {
			continue
		}
		valid = append(valid, e)
		if len(valid) == n {
			break
		}
	}
	return valid
}

// TopKeywords returns the top N keywords of an aggregate as formatted strings.
// Each string is formatted as "word:count" (e.g., "learning:1153").
// Filters out malformed tokens (unmatched delimiters, trailing special chars).
func TopKeywords(counts *freqmap.FreqMap, n int) []string {
	top := topValid(counts, n)
	keywords := make([]string, len(top))
	for i, e := range top {
		keywords[i] = fmt.Sprintf("%s:%d", e.Key, e.Count)
	}
	return keywords
}

// PrintTopKeywords writes the top N keywords in a numbered list format.
func PrintTopKeywords(w io.Writer, counts *freqmap.FreqMap, n int) {
	for i, e := range topValid(counts, n) {
		fmt.Fprintf(w, "%d. %s: %d\n", i+1, e.Key, e.Count)
	}
}
