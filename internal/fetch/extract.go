// Package fetch retrieves page text through the politeness layer and a
// TTL'd, conditional-request page cache keyed by canonical URL.
package fetch

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// boilerplateSelectors are removed before text extraction in the fallback
// path. Readability handles this itself; the fallback must do it by hand.
var boilerplateSelectors = []string{"script", "style", "nav", "header", "footer", "aside", "noscript"}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractText returns the readable main-content text of an HTML document.
// It prefers a readability-style extraction and falls back to stripping
// boilerplate elements and remaining tags when readability fails or yields
// nothing.
func ExtractText(html, pageURL string) string {
	if text := readableText(html, pageURL); text != "" {
		return text
	}

	return strippedText(html)
}

// readableText runs the readability extractor. Returns an empty string when
// the extractor errors or finds no main content.
func readableText(html, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(article.TextContent, " "))
}

// strippedText removes boilerplate elements and all remaining markup.
func strippedText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range boilerplateSelectors {
		doc.Find(selector).Remove()
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Text(), " "))
}
