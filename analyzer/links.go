package analyzer

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/models"
)

// LinkClassification splits a page's links by host. Each list is
// de-duplicated in first-seen order.
type LinkClassification struct {
	Internal []string
	External []string
}

// skipHref reports hrefs excluded before classification: empty, fragment
// only, and javascript: pseudo-links.
func skipHref(href string) bool {
	return href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(strings.ToLower(href), "javascript:")
}

// ClassifyLinks resolves every <a href> against page and compares hosts
// case-insensitively. Links without a host are internal.
func ClassifyLinks(doc *document.Document, page *url.URL) LinkClassification {
	var (
		out  LinkClassification
		seen = map[string]bool{}
	)
	for a := range doc.FindAll("a", document.HasAttr("href")) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if skipHref(href) {
			continue
		}

		abs, host := href, ""
		if u, err := page.Parse(href); err == nil {
			abs, host = u.String(), u.Host
		}

		if seen[abs] {
			continue
		}
		seen[abs] = true

		if host == "" || strings.EqualFold(host, page.Host) {
			out.Internal = append(out.Internal, abs)
		} else {
			out.External = append(out.External, abs)
		}
	}
	return out
}

// LinkCounter counts either the internal or the external links of a page.
type LinkCounter struct {
	External   bool
	SampleSize int
}

func (c LinkCounter) Analyze(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	links := ClassifyLinks(doc, in.URL)

	kind, list := "internal", links.Internal
	if c.External {
		kind, list = "external", links.External
	}

	rec := models.NewResult().
		Set(kind+"_link_count", len(list)).
		Set("sample_"+kind+"_links", orEmpty(head(list, c.SampleSize)))
	if c.External {
		rec.Set("external_domains", orEmpty(registrableDomains(list)))
	}
	return rec.Messagef("Found %d %s link(s) on the page.", len(list), kind), nil
}

// registrableDomains maps links to their eTLD+1, unique in first-seen order.
func registrableDomains(links []string) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		domain, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			domain = host
		}
		if !seen[domain] {
			seen[domain] = true
			out = append(out, domain)
		}
	}
	return out
}

var genericAnchorTexts = map[string]bool{
	"click here": true,
	"more":       true,
	"read more":  true,
	"learn more": true,
	"here":       true,
	"this link":  true,
	"link":       true,
}

type anchorInfo struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// analyzeAnchors buckets every <a href> by the quality of its text.
func analyzeAnchors(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	domain := strings.ToLower(in.URL.Host)
	bare := strings.TrimPrefix(domain, "www.")
	buckets := newBuckets[anchorInfo]("empty", "generic", "branded", "descriptive", "other")
	var all []anchorInfo

	for a := range doc.FindAll("a", document.HasAttr("href")) {
		info := anchorInfo{Text: a.Text()}
		if u, err := doc.Resolve(a.AttrOr("href", "")); err == nil {
			info.Href = u.String()
		} else {
			info.Href = strings.TrimSpace(a.AttrOr("href", ""))
		}
		all = append(all, info)

		text := strings.ToLower(info.Text)
		switch {
		case text == "":
			buckets.add("empty", info)
		case genericAnchorTexts[text]:
			buckets.add("generic", info)
		case strings.Contains(text, domain) || (bare != "" && strings.Contains(text, bare)):
			buckets.add("branded", info)
		case len(strings.Fields(text)) > 2:
			buckets.add("descriptive", info)
		default:
			buckets.add("other", info)
		}
	}

	const sample = 5
	return models.NewResult().
		Set("total_anchor_tags", len(all)).
		Set("empty_text_count", buckets.count("empty")).
		Set("generic_text_count", buckets.count("generic")).
		Set("branded_text_count", buckets.count("branded")).
		Set("descriptive_text_count", buckets.count("descriptive")).
		Set("other_text_count", buckets.count("other")).
		Set("sample_empty_text", buckets.sample("empty", sample)).
		Set("sample_generic_text", buckets.sample("generic", sample)).
		Set("sample_branded_text", buckets.sample("branded", sample)).
		Set("sample_descriptive_text", buckets.sample("descriptive", sample)).
		Set("sample_others", buckets.sample("other", sample)).
		Set("all_anchor_data", orEmpty(head(all, 20))).
		Messagef("Analyzed %d anchor tags. Empty: %d, Generic: %d, Branded: %d, Descriptive: %d, Other: %d.",
			len(all), buckets.count("empty"), buckets.count("generic"), buckets.count("branded"),
			buckets.count("descriptive"), buckets.count("other")), nil
}

type brokenLink struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// brokenLinks checks every http(s) link on the page with a HEAD request.
// A status of 400 or above, or a failed request, marks the link broken.
func brokenLinks(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		doc, err := needDoc(in)
		if err != nil {
			return nil, err
		}

		links := ClassifyLinks(doc, in.URL)
		var targets []string
		for _, l := range append(links.Internal, links.External...) {
			if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
				targets = append(targets, l)
			}
		}
		skipped := 0
		if len(targets) > deps.MaxLinkChecks {
			skipped = len(targets) - deps.MaxLinkChecks
			targets = targets[:deps.MaxLinkChecks]
		}

		results := make([]*brokenLink, len(targets))
		g := new(errgroup.Group)
		g.SetLimit(deps.LinkCheckWorkers)
		for i, target := range targets {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				pctx, cancel := deps.probeContext(ctx)
				defer cancel()

				code, err := deps.Fetcher.Head(pctx, target)
				switch {
				case err != nil:
					results[i] = &brokenLink{URL: target, Error: fetchErrorDetail(err)}
				case code >= 400:
					results[i] = &brokenLink{URL: target, StatusCode: code}
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var broken []brokenLink
		for _, r := range results {
			if r != nil {
				broken = append(broken, *r)
			}
		}

		rec := models.NewResult().
			Set("checked_link_count", len(targets)).
			Set("unchecked_link_count", skipped).
			Set("broken_link_count", len(broken)).
			Set("broken_links", orEmpty(broken))
		if len(broken) == 0 {
			return rec.Messagef("No broken links found on the page."), nil
		}
		return rec.Messagef("Found %d broken links.", len(broken)), nil
	}
}

// fetchErrorDetail renders a fetch failure for a result field.
func fetchErrorDetail(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		if fe.Err != nil {
			return string(fe.Kind) + ": " + fe.Err.Error()
		}
		return string(fe.Kind)
	}
	return err.Error()
}
