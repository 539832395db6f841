// Package analyzer holds the analysis rules behind every tool. Each rule is
// an Analyzer; the generic ones (length checks, link counters, meta
// previews, text transforms) are configured per tool in catalog.go.
package analyzer

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/models"
)

// ErrDependencyUnavailable is returned by analyzers whose optional
// capability was not enabled at startup.
var ErrDependencyUnavailable = errors.New("analyzer: dependency unavailable")

// Input is what the runner hands an analyzer. Which fields are set depends
// on the tool's input kind and whether it asked for a pre-fetch.
type Input struct {
	// URL is the validated target for URL tools and compound tools with a
	// "url" field.
	URL *url.URL

	// Page and Doc are set when the runner fetched URL first.
	Page *fetcher.Page
	Doc  *document.Document

	// Text is the raw payload of raw-text tools.
	Text string

	// Fields are the named inputs of compound tools.
	Fields map[string]string
}

// Field returns a trimmed compound field.
func (in Input) Field(name string) string {
	return strings.TrimSpace(in.Fields[name])
}

// Analyzer implements one analysis rule. Analyzers keep no state between
// calls. An absent feature is an Ok record; a returned error becomes an
// Error record at the runner.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (*models.ResultRecord, error)
}

// Func adapts a plain function to Analyzer.
type Func func(ctx context.Context, in Input) (*models.ResultRecord, error)

func (f Func) Analyze(ctx context.Context, in Input) (*models.ResultRecord, error) {
	return f(ctx, in)
}

// Tool pairs a descriptor with its analyzer.
type Tool struct {
	Descriptor models.ToolDescriptor
	Analyzer   Analyzer
}

// Fetcher is the subset of *fetcher.Fetcher analyzers use for derived
// requests (robots.txt, favicons, link checks).
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
	Probe(ctx context.Context, rawURL string) (*fetcher.Page, error)
	Head(ctx context.Context, rawURL string) (int, error)
}

// Deps are the collaborators the catalog wires into analyzers.
type Deps struct {
	Fetcher Fetcher

	// ProbeTimeout bounds each derived request. Zero means the fetcher's
	// own timeout.
	ProbeTimeout time.Duration

	// LinkCheckWorkers bounds concurrent broken-link checks. Default 8.
	LinkCheckWorkers int

	// MaxLinkChecks caps how many links one broken-link run checks.
	// Default 100.
	MaxLinkChecks int

	// Whois is nil when the WHOIS capability is disabled.
	Whois WhoisClient

	// Now is the clock used for ages. Default time.Now.
	Now func() time.Time
}

func (d *Deps) defaults() {
	if d.LinkCheckWorkers <= 0 {
		d.LinkCheckWorkers = 8
	}
	if d.MaxLinkChecks <= 0 {
		d.MaxLinkChecks = 100
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

func (d *Deps) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.ProbeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.ProbeTimeout)
}

// invalidInput builds the error analyzers return for a bad payload.
func invalidInput(message string) error {
	return models.NewToolError(models.ErrCodeInvalidInput, message, nil)
}

// needDoc guards analyzers that require a pre-fetched page.
func needDoc(in Input) (*document.Document, error) {
	if in.Doc == nil {
		return nil, errors.New("analyzer: page was not fetched")
	}
	return in.Doc, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// percent returns part/whole*100 with the denominator floored at 1.
func percent(part, whole int) float64 {
	return float64(part) / float64(max(whole, 1)) * 100
}

// head returns at most the first n items.
func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// origin returns scheme://host of u.
func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// truncateRunes cuts s to n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// orEmpty makes nil slices serialize as [].
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
