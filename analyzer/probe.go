package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/temoto/robotstxt"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/models"
)

// probe fetches a derived resource with the probe timeout.
func (d *Deps) probe(ctx context.Context, rawURL string) (int, []byte, error) {
	pctx, cancel := d.probeContext(ctx)
	defer cancel()
	page, err := d.Fetcher.Probe(pctx, rawURL)
	if err != nil {
		return 0, nil, err
	}
	return page.StatusCode, page.Body, nil
}

// robotsUserAgents lists the User-agent values in declaration order.
func robotsUserAgents(body []byte) []string {
	var (
		agents []string
		seen   = map[string]bool{}
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "user-agent") {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" && !seen[value] {
			seen[value] = true
			agents = append(agents, value)
		}
	}
	return agents
}

func robotsTxt(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		robotsURL := origin(in.URL) + "/robots.txt"
		code, body, err := deps.probe(ctx, robotsURL)
		if err != nil {
			return nil, err
		}

		rec := models.NewResult().
			Set("robots_url", robotsURL).
			Set("status_code", code)
		if code != http.StatusOK {
			return rec.Set("status", "Not Found").
				Messagef("robots.txt not found at %s. Status code: %d", robotsURL, code), nil
		}

		robots, err := robotstxt.FromStatusAndBytes(code, body)
		if err != nil {
			return nil, models.NewToolError(models.ErrCodeParseFailure, "Could not parse robots.txt.", err)
		}

		path := in.URL.EscapedPath()
		if path == "" {
			path = "/"
		}
		crawlDelay := 0.0
		if g := robots.FindGroup("*"); g != nil {
			crawlDelay = g.CrawlDelay.Seconds()
		}

		return rec.Set("status", "Found").
			Set("user_agents", orEmpty(robotsUserAgents(body))).
			Set("sitemaps", orEmpty(robots.Sitemaps)).
			Set("crawl_delay_seconds", crawlDelay).
			Set("path_allowed", robots.TestAgent(path, "*")).
			Set("robots_txt_content", string(body)).
			Messagef("robots.txt found at %s.", robotsURL), nil
	}
}

// SitemapSummary is what ParseSitemap extracts from a sitemap document.
type SitemapSummary struct {
	// Kind is the root element: "urlset" or "sitemapindex".
	Kind string
	Locs []string
}

// ParseSitemap collects every <loc> in document order. The root element
// must be <urlset> or <sitemapindex>.
func ParseSitemap(body []byte) (SitemapSummary, error) {
	var (
		out    SitemapSummary
		inLoc  bool
		locBuf strings.Builder
	)
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if out.Kind == "" {
				out.Kind = t.Name.Local
			}
			if t.Name.Local == "loc" {
				inLoc = true
				locBuf.Reset()
			}
		case xml.CharData:
			if inLoc {
				locBuf.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "loc" && inLoc {
				inLoc = false
				out.Locs = append(out.Locs, strings.TrimSpace(locBuf.String()))
			}
		}
	}
	switch out.Kind {
	case "urlset", "sitemapindex":
		return out, nil
	case "":
		return out, errors.New("no root element")
	default:
		return out, fmt.Errorf("unexpected root element <%s>", out.Kind)
	}
}

// sitemapXML probes /sitemap.xml and, when that is missing, the first
// Sitemap declared in robots.txt.
func sitemapXML(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		sitemapURL, source := origin(in.URL)+"/sitemap.xml", "default"
		code, body, err := deps.probe(ctx, sitemapURL)
		if err != nil {
			return nil, err
		}

		if code != http.StatusOK {
			if rcode, rbody, err := deps.probe(ctx, origin(in.URL)+"/robots.txt"); err == nil && rcode == http.StatusOK {
				if robots, err := robotstxt.FromStatusAndBytes(rcode, rbody); err == nil && len(robots.Sitemaps) > 0 {
					alt := robots.Sitemaps[0]
					if acode, abody, err := deps.probe(ctx, alt); err == nil && acode == http.StatusOK {
						sitemapURL, source, code, body = alt, "robots.txt", acode, abody
					}
				}
			}
		}

		rec := models.NewResult().
			Set("sitemap_url", sitemapURL).
			Set("source", source).
			Set("status_code", code)
		if code != http.StatusOK {
			return rec.Set("status", "Not Found").
				Messagef("Could not fetch sitemap.xml. Status code: %d", code), nil
		}

		summary, err := ParseSitemap(body)
		if err != nil {
			return rec.Set("status", "Invalid").
				Set("detail", err.Error()).
				Messagef("Sitemap found at %s, but it is not a valid sitemap.", sitemapURL), nil
		}

		rec.Set("status", "Valid").
			Set("type", summary.Kind).
			Set("total_urls", len(summary.Locs)).
			Set("urls", orEmpty(head(summary.Locs, 20)))
		if len(summary.Locs) == 0 {
			return rec.Messagef("Sitemap.xml found, but no URLs were extracted. It may be empty or malformed."), nil
		}
		return rec.Messagef("Sitemap.xml fetched and validated. Found %d URLs.", len(summary.Locs)), nil
	}
}

var faviconRels = []string{
	"icon",
	"shortcut icon",
	"apple-touch-icon",
	"apple-touch-icon-precomposed",
	"mask-icon",
}

type faviconCheck struct {
	FaviconURL string `json:"favicon_url"`
	StatusCode int    `json:"status_code"`
	Accessible bool   `json:"accessible"`
	Error      string `json:"error,omitempty"`
}

// faviconURLs returns the declared icons in rel priority order, or the
// conventional /favicon.ico when none is declared.
func faviconURLs(doc *document.Document, in Input) []string {
	var urls []string
	for _, rel := range faviconRels {
		link, ok := doc.First("link", document.AttrContains("rel", rel), document.HasAttr("href"))
		if !ok {
			continue
		}
		abs, err := doc.Resolve(link.AttrOr("href", ""))
		if err != nil {
			continue
		}
		if u := abs.String(); !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		urls = append(urls, origin(in.URL)+"/favicon.ico")
	}
	return urls
}

func checkFavicon(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		doc, err := needDoc(in)
		if err != nil {
			return nil, err
		}

		var (
			checks     []faviconCheck
			accessible bool
		)
		for _, u := range faviconURLs(doc, in) {
			pctx, cancel := deps.probeContext(ctx)
			code, err := deps.Fetcher.Head(pctx, u)
			cancel()

			c := faviconCheck{FaviconURL: u, StatusCode: code, Accessible: err == nil && code >= 200 && code < 400}
			if err != nil {
				c.Error = fetchErrorDetail(err)
			}
			accessible = accessible || c.Accessible
			checks = append(checks, c)
		}

		rec := models.NewResult().Set("favicons_checked", checks)
		if accessible {
			return rec.Messagef("Favicon found and accessible."), nil
		}
		return rec.Messagef("Favicon not found or not accessible."), nil
	}
}

func statusCode(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		page, err := deps.Fetcher.Probe(ctx, in.URL.String())
		if err != nil {
			return nil, err
		}
		return models.NewResult().
			Set("url", in.URL.String()).
			Set("status_code", page.StatusCode).
			Set("status_text", http.StatusText(page.StatusCode)).
			Set("final_url", page.FinalURL.String()).
			Messagef("Status code: %d", page.StatusCode), nil
	}
}

func pageLoadTime(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		page, err := deps.Fetcher.Probe(ctx, in.URL.String())
		if err != nil {
			return nil, err
		}
		seconds := round3(page.Elapsed.Seconds())
		return models.NewResult().
			Set("url", in.URL.String()).
			Set("status_code", page.StatusCode).
			Set("load_time_seconds", seconds).
			Set("page_size_bytes", len(page.Body)).
			Messagef("Page loaded in %g seconds (HTTP status: %d).", seconds, page.StatusCode), nil
	}
}

// redirectChain reports every hop, oldest first, ending with the final
// response.
func redirectChain(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		page, err := deps.Fetcher.Probe(ctx, in.URL.String())
		if err != nil {
			return nil, err
		}

		rec := models.NewResult().
			Set("redirect_chain", page.History).
			Set("redirect_count", page.Redirects()).
			Set("final_url", page.FinalURL.String()).
			Set("final_status_code", page.StatusCode)
		if n := page.Redirects(); n > 0 {
			return rec.Messagef("Redirect chain has %d redirect(s).", n), nil
		}
		return rec.Messagef("No redirects detected."), nil
	}
}
