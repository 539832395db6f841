// Package fetcher performs bounded single-shot HTTP retrieval. It never
// retries and never caches; every failure comes back as a *FetchError.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Options configures a Fetcher. Zero values take the defaults noted.
type Options struct {
	Timeout      time.Duration // default: 10s
	MaxBodyBytes int64         // default: 10 MiB
	MaxRedirects int           // default: 10
	UserAgent    string        // default: desktop Chrome

	// Fingerprint selects the TLS ClientHello: "go" (default) or "chrome".
	Fingerprint string
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 10 << 20
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 10
	}
	if o.UserAgent == "" {
		o.UserAgent = chromeUA
	}
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	opts.defaults()

	var transport http.RoundTripper
	if strings.EqualFold(opts.Fingerprint, "chrome") {
		transport = chromeTransport(opts.Timeout)
	} else {
		transport = standardTransport(opts.Timeout)
	}

	maxRedirects := opts.MaxRedirects
	return &Fetcher{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
				}
				return nil
			},
		},
	}
}

// Timeout returns the configured per-request deadline.
func (f *Fetcher) Timeout() time.Duration {
	return f.opts.Timeout
}

// ParseTarget validates that raw is an absolute http(s) URL with a host.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &FetchError{Kind: KindInvalidInput, URL: raw, Err: errors.New("empty URL")}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidInput, URL: raw, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &FetchError{Kind: KindInvalidInput, URL: raw, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &FetchError{Kind: KindInvalidInput, URL: raw, Err: errors.New("missing host")}
	}
	return u, nil
}

// Fetch performs one GET. A final status outside 2xx/3xx is a
// KindHTTPStatus failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	page, err := f.do(ctx, http.MethodGet, rawURL, true)
	if err != nil {
		return nil, err
	}
	if page.StatusCode < 200 || page.StatusCode >= 400 {
		return page, &FetchError{Kind: KindHTTPStatus, URL: rawURL, StatusCode: page.StatusCode}
	}
	return page, nil
}

// Probe performs one GET and accepts any HTTP status. Only invalid input,
// network failures and timeouts are errors.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (*Page, error) {
	return f.do(ctx, http.MethodGet, rawURL, true)
}

// Head returns the final status code of a HEAD request with redirects
// followed. Servers that refuse HEAD are asked again with GET.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, error) {
	page, err := f.do(ctx, http.MethodHead, rawURL, false)
	if err != nil {
		return 0, err
	}
	if page.StatusCode == http.StatusMethodNotAllowed || page.StatusCode == http.StatusNotImplemented {
		page, err = f.do(ctx, http.MethodGet, rawURL, false)
		if err != nil {
			return 0, err
		}
	}
	return page.StatusCode, nil
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string, readBody bool) (*Page, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidInput, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	var body []byte
	if readBody {
		var reader io.Reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes)
		if isTextual(ct) {
			if decoded, err := charset.NewReader(reader, ct); err == nil {
				reader = decoded
			}
		}
		body, err = io.ReadAll(reader)
		if err != nil {
			return nil, classify(rawURL, err)
		}
	}

	return &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL,
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: ct,
		Body:        body,
		History:     history(resp),
		Elapsed:     time.Since(start),
	}, nil
}
