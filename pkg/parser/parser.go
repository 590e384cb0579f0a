package parser

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/freqmerge/models"
	"github.com/go-shiori/go-readability"
)

// textSelector lists the tags whose text is counted.
const textSelector = "h1,h2,h3,h4,p,li,td,th,pre,blockquote"

type Parser struct{}

// ExtractText uses go-readability to find the main article content and then
// collects the text of its content-bearing tags with goquery. When readability
// cannot find an article the whole <body> text is used instead.
func (p *Parser) ExtractText(rawURL, html string) (*models.Document, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	readabilityParser := readability.NewParser()
	article, err := readabilityParser.Parse(strings.NewReader(html), parsedURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		text, err := blockText(article.Content)
		if err == nil && text != "" {
			return &models.Document{
				Source: rawURL,
				Title:  normalizeText(article.Title),
				Text:   text,
			}, nil
		}
	}

	// Fallback: readability found nothing worth keeping
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script,style,noscript").Remove()

	return &models.Document{
		Source: rawURL,
		Title:  normalizeText(doc.Find("title").First().Text()),
		Text:   normalizeText(doc.Find("body").Text()),
	}, nil
}

// blockText joins the normalized text of every block in the HTML fragment.
func blockText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var blocks []string
	doc.Find(textSelector).Each(func(i int, s *goquery.Selection) {
		// Nested matches (li > p) would be counted twice
		if s.ParentsFiltered(textSelector).Length() > 0 {
			return
		}
		if text := normalizeText(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	return strings.Join(blocks, "\n"), nil
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			// Write the line and a single space for separation
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	// Return the result, trimming the final space
	return strings.TrimSpace(b.String())
}
