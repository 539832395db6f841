// Package content extracts the main readable body of a page and renders it
// as markdown, html or plain text.
package content

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// Extraction modes.
const (
	ModeReadability = "readability"
	ModeRaw         = "raw"
	ModePruning     = "pruning"
	ModeAuto        = "auto"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// Options selects how a page is reduced. Zero values mean readability and
// markdown.
type Options struct {
	Mode   string
	Format string

	// Citations rewrites inline markdown links to numbered references.
	Citations bool

	// Include keeps only elements matching these selectors; Exclude drops
	// elements matching these selectors first.
	Include []string
	Exclude []string
}

// Validate rejects unknown modes and formats.
func (o Options) Validate() error {
	switch o.Mode {
	case "", ModeReadability, ModeRaw, ModePruning, ModeAuto:
	default:
		return fmt.Errorf("unknown mode %q (want readability, raw, pruning or auto)", o.Mode)
	}
	switch o.Format {
	case "", FormatMarkdown, FormatHTML, FormatText:
	default:
		return fmt.Errorf("unknown format %q (want markdown, html or text)", o.Format)
	}
	return nil
}

// Result is the reduced page.
type Result struct {
	Title    string
	Byline   string
	Excerpt  string
	SiteName string
	Language string

	// ModeUsed is the extraction that produced Content. It differs from the
	// requested mode when readability fell back or auto picked a winner.
	ModeUsed string
	Format   string
	Content  string

	OriginalTokens int
	CleanedTokens  int
	SavingsPercent float64
}

// Extractor holds the markdown converter. It is safe for concurrent use.
type Extractor struct {
	md *converter.Converter
}

// NewExtractor builds an Extractor with the shared markdown converter.
func NewExtractor() *Extractor {
	return &Extractor{md: newMarkdownConverter()}
}

// Extract reduces rawHTML fetched from sourceURL.
func (e *Extractor) Extract(rawHTML, sourceURL string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = ModeReadability
	}
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}

	original := EstimateTokens(rawHTML)
	filtered := FilterContent(rawHTML, opts.Include, opts.Exclude)

	article, used := e.article(filtered, sourceURL, opts.Mode)

	var body string
	switch opts.Format {
	case FormatHTML:
		body = article.Content
	case FormatText:
		body = strings.TrimSpace(article.TextContent)
	default:
		md, err := ToMarkdown(e.md, article.Content, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("content: markdown conversion: %w", err)
		}
		body = md
		if opts.Citations {
			body = ConvertToCitations(body)
		}
	}

	cleaned := EstimateTokens(body)
	savings := 0.0
	if original > 0 {
		savings = math.Round(float64(original-cleaned)/float64(original)*100*100) / 100
	}

	return &Result{
		Title:          article.Title,
		Byline:         article.Byline,
		Excerpt:        article.Excerpt,
		SiteName:       article.SiteName,
		Language:       article.Language,
		ModeUsed:       used,
		Format:         opts.Format,
		Content:        body,
		OriginalTokens: original,
		CleanedTokens:  cleaned,
		SavingsPercent: savings,
	}, nil
}

func (e *Extractor) article(rawHTML, sourceURL, mode string) (readability.Article, string) {
	switch mode {
	case ModeRaw:
		return fallbackArticle(rawHTML), ModeRaw
	case ModePruning:
		return prunedArticle(rawHTML, sourceURL), ModePruning
	case ModeAuto:
		return autoExtract(rawHTML, sourceURL)
	default:
		article, ok := ExtractContent(rawHTML, sourceURL)
		if !ok {
			return article, ModeRaw
		}
		return article, ModeReadability
	}
}

// prunedArticle takes its body from the pruning scorer and its metadata
// from readability.
func prunedArticle(rawHTML, sourceURL string) readability.Article {
	pruned, err := PruneContent(rawHTML)
	if err != nil {
		slog.Debug("pruning failed, using full page", "url", sourceURL, "error", err)
		pruned = rawHTML
	}
	meta, _ := ExtractContent(rawHTML, sourceURL)
	return readability.Article{
		Title:       meta.Title,
		Byline:      meta.Byline,
		Excerpt:     meta.Excerpt,
		SiteName:    meta.SiteName,
		Language:    meta.Language,
		Content:     pruned,
		TextContent: stripTags(pruned),
	}
}

// autoExtract runs readability and pruning concurrently and keeps the one
// with more text, unless it is over ten times longer than a still
// substantial alternative.
func autoExtract(rawHTML, sourceURL string) (readability.Article, string) {
	var (
		read     readability.Article
		readOK   bool
		pruned   string
		pruneErr error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		read, readOK = ExtractContent(rawHTML, sourceURL)
	}()
	go func() {
		defer wg.Done()
		pruned, pruneErr = PruneContent(rawHTML)
	}()
	wg.Wait()

	if pruneErr != nil {
		slog.Debug("auto: pruning failed, using readability", "url", sourceURL, "error", pruneErr)
		if !readOK {
			return read, ModeRaw
		}
		return read, ModeReadability
	}

	prunedText := stripTags(pruned)
	readText := strings.TrimSpace(read.TextContent)
	if !readOK {
		readText = ""
	}

	useRead := len(readText) >= len(prunedText)
	if useRead && len(prunedText) > minContentLength && len(readText) > 10*len(prunedText) {
		useRead = false
	} else if !useRead && len(readText) > minContentLength && len(prunedText) > 10*len(readText) {
		useRead = true
	}

	if useRead {
		return read, ModeReadability
	}
	return readability.Article{
		Title:       read.Title,
		Byline:      read.Byline,
		Excerpt:     read.Excerpt,
		SiteName:    read.SiteName,
		Language:    read.Language,
		Content:     pruned,
		TextContent: prunedText,
	}, ModePruning
}
