package urls

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor extracted from an HTML page.
type Link struct {
	URL  string
	Text string
}

// mediaExtensions are file extensions that never point at article pages.
var mediaExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
	".mp4", ".mp3", ".avi", ".mov", ".wmv",
	".pdf", ".zip", ".rar", ".7z",
}

// utilitySegments are path fragments of listing/index pages rather than
// individual articles.
var utilitySegments = []string{"/tag/", "/category/", "/page/", "/author/", "/feed"}

// ExtractLinks pulls anchor href/text pairs out of an HTML document and
// resolves them against the base URL. Anchors without an href are skipped.
func ExtractLinks(html, baseURL string) []Link {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []Link

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}

		links = append(links, Link{
			URL:  base.ResolveReference(ref).String(),
			Text: strings.Join(strings.Fields(sel.Text()), " "),
		})
	})

	return links
}

// LooksLikeArticle applies the article-shape heuristic: the URL must not be a
// media/archive file and must not be a tag/category/pagination/author/feed
// listing.
func LooksLikeArticle(raw string) bool {
	lowered := strings.ToLower(raw)

	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lowered, ext) {
			return false
		}
	}

	for _, seg := range utilitySegments {
		if strings.Contains(lowered, seg) {
			return false
		}
	}

	return true
}
