package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"

	"github.com/use-agent/pagelens/models"
)

// WhoisRecord is the part of a WHOIS response the domain age tool reads.
type WhoisRecord struct {
	Domain      string
	Registrar   string
	CreatedDate string
}

// WhoisClient looks up registration data for a registrable domain.
type WhoisClient interface {
	Lookup(ctx context.Context, domain string) (WhoisRecord, error)
}

// NetWhois queries WHOIS servers over TCP port 43.
type NetWhois struct {
	client *whois.Client
}

// NewNetWhois returns a client whose queries give up after timeout.
func NewNetWhois(timeout time.Duration) *NetWhois {
	return &NetWhois{client: whois.NewClient().SetTimeout(timeout)}
}

func (w *NetWhois) Lookup(ctx context.Context, domain string) (WhoisRecord, error) {
	type answer struct {
		raw string
		err error
	}
	done := make(chan answer, 1)
	go func() {
		raw, err := w.client.Whois(domain)
		done <- answer{raw, err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return WhoisRecord{}, ctx.Err()
	case a = <-done:
	}
	if a.err != nil {
		return WhoisRecord{}, fmt.Errorf("whois %s: %w", domain, a.err)
	}

	info, err := whoisparser.Parse(a.raw)
	if err != nil {
		return WhoisRecord{}, fmt.Errorf("parse whois %s: %w", domain, err)
	}
	rec := WhoisRecord{Domain: domain}
	if info.Domain != nil {
		rec.CreatedDate = info.Domain.CreatedDate
	}
	if info.Registrar != nil {
		rec.Registrar = info.Registrar.Name
	}
	return rec, nil
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"2006/01/02",
}

// parseWhoisDate accepts the date formats registries commonly use.
func parseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// registrableDomain accepts a bare domain or a URL and returns its eTLD+1.
func registrableDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		host = u.Hostname()
	} else if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", fmt.Errorf("no domain in %q", raw)
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}

func domainAge(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		if deps.Whois == nil {
			return nil, ErrDependencyUnavailable
		}
		domain, err := registrableDomain(in.Text)
		if err != nil {
			return nil, invalidInput("Input must be a domain name such as example.com.")
		}

		rec, err := deps.Whois.Lookup(ctx, domain)
		if err != nil {
			return nil, models.NewToolError(models.ErrCodeFetchFailure, "WHOIS lookup failed.", err)
		}

		out := models.NewResult().
			Set("domain", domain).
			Set("registrar", rec.Registrar)
		created, ok := parseWhoisDate(rec.CreatedDate)
		if !ok {
			return out.Set("creation_date", nil).
				Set("age_days", nil).
				Messagef("Could not determine domain creation date."), nil
		}

		days := int(deps.Now().UTC().Sub(created).Hours() / 24)
		years := days / 365
		return out.Set("creation_date", created.Format("2006-01-02")).
			Set("age_days", days).
			Set("age_years", years).
			Messagef("Domain created on %s (%d year(s) old).", created.Format("2006-01-02"), years), nil
	}
}
