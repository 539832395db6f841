package fetcher

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Hop is one response in a redirect chain.
type Hop struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
}

// Page is the immutable result of one successful request.
type Page struct {
	// URL is the address that was requested.
	URL string

	// FinalURL is where the request ended after redirects.
	FinalURL *url.URL

	StatusCode  int
	Header      http.Header
	ContentType string

	// Body is the response body decoded to UTF-8 for textual content.
	Body []byte

	// History lists every response oldest to newest. The final response is
	// always the last entry, so a request without redirects has one entry.
	History []Hop

	// Elapsed covers the request, all redirects and reading the body.
	Elapsed time.Duration
}

// Redirects returns the number of redirect hops before the final response.
func (p *Page) Redirects() int {
	if len(p.History) == 0 {
		return 0
	}
	return len(p.History) - 1
}

// IsHTML reports whether the content type looks like HTML.
func (p *Page) IsHTML() bool {
	return isHTMLContentType(p.ContentType)
}

// history walks the redirect responses recorded by net/http back from the
// final response and returns them oldest first.
func history(resp *http.Response) []Hop {
	var hops []Hop
	for r := resp; r != nil && r.Request != nil; r = r.Request.Response {
		hops = append(hops, Hop{URL: r.Request.URL.String(), StatusCode: r.StatusCode})
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return hops
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// isTextual reports whether a body with this content type should be
// charset-decoded. An empty content type is treated as text.
func isTextual(ct string) bool {
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		strings.HasSuffix(mediaType, "xml") ||
		strings.HasSuffix(mediaType, "json")
}
