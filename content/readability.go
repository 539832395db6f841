package content

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability text accepted as the main
// content. Shorter output means the algorithm missed the body.
const minContentLength = 50

// ExtractContent runs Mozilla Readability over rawHTML. ok is false when the
// full page was returned instead: a bad source URL, a readability error, or
// fewer than minContentLength characters of text.
func ExtractContent(rawHTML, sourceURL string) (article readability.Article, ok bool) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML), false
	}

	article, err = readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: content too short", "url", sourceURL, "length", len(article.TextContent))
		fb := fallbackArticle(rawHTML)
		fb.Title = article.Title
		fb.SiteName = article.SiteName
		fb.Language = article.Language
		return fb, false
	}

	return article, true
}

// fallbackArticle wraps the whole page so callers can proceed uniformly.
func fallbackArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: stripTags(rawHTML),
	}
}

// stripTags returns the trimmed text of an HTML fragment.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
