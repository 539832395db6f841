package analyzer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/pagelens/fetcher"
)

func newCheckSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: Googlebot\nAllow: /\n\nSitemap: " + srv.URL + "/maps/main.xml\n"))
	})
	mux.HandleFunc("/maps/main.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc> https://example.com/about </loc></url>
</urlset>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plain", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func siteDeps() *Deps {
	d := &Deps{Fetcher: fetcher.New(fetcher.Options{Timeout: 2 * time.Second}), ProbeTimeout: time.Second}
	d.defaults()
	return d
}

func TestRedirectChainWithoutRedirects(t *testing.T) {
	srv := newCheckSite(t)
	rec := run(t, redirectChain(siteDeps()), Input{URL: mustURL(t, srv.URL+"/plain")})

	chain := field[[]fetcher.Hop](t, rec, "redirect_chain")
	if len(chain) != 1 || chain[0].URL != srv.URL+"/plain" || chain[0].StatusCode != 200 {
		t.Errorf("redirect_chain = %v", chain)
	}
	if rec.Message != "No redirects detected." {
		t.Errorf("message = %q", rec.Message)
	}
}

func TestRedirectChainFollowsHops(t *testing.T) {
	srv := newCheckSite(t)
	rec := run(t, redirectChain(siteDeps()), Input{URL: mustURL(t, srv.URL+"/old")})
	if got := field[int](t, rec, "redirect_count"); got != 1 {
		t.Errorf("redirect_count = %d", got)
	}
	if rec.Message != "Redirect chain has 1 redirect(s)." {
		t.Errorf("message = %q", rec.Message)
	}
}

func TestStatusCodeAcceptsErrors(t *testing.T) {
	srv := newCheckSite(t)
	rec := run(t, statusCode(siteDeps()), Input{URL: mustURL(t, srv.URL+"/gone")})
	if got := field[int](t, rec, "status_code"); got != http.StatusGone {
		t.Errorf("status_code = %d", got)
	}
}

func TestRobotsTxt(t *testing.T) {
	srv := newCheckSite(t)
	rec := run(t, robotsTxt(siteDeps()), Input{URL: mustURL(t, srv.URL+"/private/page")})

	if got := field[string](t, rec, "status"); got != "Found" {
		t.Fatalf("status = %s", got)
	}
	agents := field[[]string](t, rec, "user_agents")
	if len(agents) != 2 || agents[0] != "*" || agents[1] != "Googlebot" {
		t.Errorf("user_agents = %v", agents)
	}
	if field[bool](t, rec, "path_allowed") {
		t.Error("path_allowed = true for a disallowed path")
	}
	if got := field[float64](t, rec, "crawl_delay_seconds"); got != 2 {
		t.Errorf("crawl_delay_seconds = %v", got)
	}
	if got := field[[]string](t, rec, "sitemaps"); len(got) != 1 {
		t.Errorf("sitemaps = %v", got)
	}
}

func TestSitemapFallsBackToRobots(t *testing.T) {
	srv := newCheckSite(t)
	rec := run(t, sitemapXML(siteDeps()), Input{URL: mustURL(t, srv.URL+"/")})

	if got := field[string](t, rec, "source"); got != "robots.txt" {
		t.Errorf("source = %s", got)
	}
	if got := field[string](t, rec, "type"); got != "urlset" {
		t.Errorf("type = %s", got)
	}
	urls := field[[]string](t, rec, "urls")
	if len(urls) != 2 || urls[1] != "https://example.com/about" {
		t.Errorf("urls = %v", urls)
	}
}

func TestSitemapAbsenceIsOk(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rec := run(t, sitemapXML(siteDeps()), Input{URL: mustURL(t, srv.URL)})
	if got := field[string](t, rec, "status"); got != "Not Found" {
		t.Errorf("status = %s", got)
	}
}

func TestParseSitemapIndex(t *testing.T) {
	s, err := ParseSitemap([]byte(`<sitemapindex><sitemap><loc>https://example.com/a.xml</loc></sitemap></sitemapindex>`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != "sitemapindex" || len(s.Locs) != 1 {
		t.Errorf("summary = %+v", s)
	}
	if _, err := ParseSitemap([]byte("just text")); err == nil {
		t.Error("expected error for non-XML body")
	}
}

func TestParseSitemapRejectsOtherRoots(t *testing.T) {
	for _, body := range []string{
		"<html><body>hi</body></html>",
		`<?xml version="1.0"?><rss><channel><link>https://example.com/</link></channel></rss>`,
	} {
		if s, err := ParseSitemap([]byte(body)); err == nil {
			t.Errorf("ParseSitemap(%q) = %+v, want error", body, s)
		}
	}
}

func TestSitemapServedAsHTMLIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>catch-all</body></html>"))
	}))
	defer srv.Close()

	rec := run(t, sitemapXML(siteDeps()), Input{URL: mustURL(t, srv.URL)})
	if got := field[string](t, rec, "status"); got != "Invalid" {
		t.Errorf("status = %s", got)
	}
	if _, ok := rec.Get("type"); ok {
		t.Error("type should not be set for an invalid sitemap")
	}
}

func TestFaviconFallback(t *testing.T) {
	srv := newCheckSite(t)
	in := pageInput(t, srv.URL+"/plain", "<html><head></head></html>")
	rec := run(t, checkFavicon(siteDeps()), in)

	checks := field[[]faviconCheck](t, rec, "favicons_checked")
	if len(checks) != 1 || checks[0].FaviconURL != srv.URL+"/favicon.ico" || checks[0].Accessible {
		t.Errorf("favicons_checked = %+v", checks)
	}
	if rec.Message != "Favicon not found or not accessible." {
		t.Errorf("message = %q", rec.Message)
	}
}

func TestBrokenLinks(t *testing.T) {
	srv := newCheckSite(t)
	markup := `<a href="/plain">ok</a><a href="/gone">gone</a><a href="mailto:a@b.c">mail</a>`
	rec := run(t, brokenLinks(siteDeps()), pageInput(t, srv.URL+"/", markup))

	if got := field[int](t, rec, "checked_link_count"); got != 2 {
		t.Errorf("checked_link_count = %d", got)
	}
	broken := field[[]brokenLink](t, rec, "broken_links")
	if len(broken) != 1 || broken[0].URL != srv.URL+"/gone" || broken[0].StatusCode != http.StatusGone {
		t.Errorf("broken_links = %+v", broken)
	}
}

type fakeWhois struct {
	rec WhoisRecord
	err error
}

func (f fakeWhois) Lookup(context.Context, string) (WhoisRecord, error) {
	return f.rec, f.err
}

func TestDomainAge(t *testing.T) {
	now := func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }
	deps := &Deps{Whois: fakeWhois{rec: WhoisRecord{CreatedDate: "2000-01-01T00:00:00Z", Registrar: "Example Registrar"}}, Now: now}

	rec := run(t, domainAge(deps), Input{Text: "https://www.example.co.uk/path"})
	if got := field[string](t, rec, "domain"); got != "example.co.uk" {
		t.Errorf("domain = %s", got)
	}
	if got := field[int](t, rec, "age_days"); got != 7305 {
		t.Errorf("age_days = %d", got)
	}
	if got := field[int](t, rec, "age_years"); got != 20 {
		t.Errorf("age_years = %d", got)
	}

	_, err := domainAge(&Deps{Now: now}).Analyze(context.Background(), Input{Text: "example.com"})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct{ in, want string }{
		{"example.com", "example.com"},
		{"Sub.Example.com/path", "example.com"},
		{"http://blog.example.org:8080/x", "example.org"},
	}
	for _, tt := range tests {
		got, err := registrableDomain(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("registrableDomain(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := registrableDomain("   "); err == nil {
		t.Error("expected error for empty input")
	}
}
