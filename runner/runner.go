// Package runner turns one tool request into one result record. It owns
// the fetch for URL tools and converts every failure, panics included,
// into an Error record.
package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

// CompoundDelimiter joins the fields of a legacy compound input.
const CompoundDelimiter = "|||"

// PageFetcher retrieves the page a URL tool analyzes.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Runner is safe for concurrent use.
type Runner struct {
	reg          *registry.Registry
	fetcher      PageFetcher
	capabilities []string
}

// New creates a Runner. capabilities lists the optional dependencies
// available in this process, e.g. "whois".
func New(reg *registry.Registry, f PageFetcher, capabilities ...string) *Runner {
	return &Runner{reg: reg, fetcher: f, capabilities: capabilities}
}

// Registry returns the registry the runner resolves tools from.
func (r *Runner) Registry() *registry.Registry {
	return r.reg
}

// Execute runs one tool. It always returns a record.
func (r *Runner) Execute(ctx context.Context, toolID string, p models.Payload) (rec *models.ResultRecord) {
	defer func() {
		if v := recover(); v != nil {
			rec = models.NewErrorResult(models.ErrCodeAnalysis, fmt.Sprintf("Analysis failed: %v", v))
		}
		rec.Tool = toolID
	}()

	tool, err := r.reg.Resolve(toolID)
	if err != nil {
		return models.NewErrorResult(models.ErrCodeNotFound, fmt.Sprintf("Unknown tool %q.", toolID))
	}
	desc := tool.Descriptor

	for _, need := range desc.Requires {
		if !slices.Contains(r.capabilities, need) {
			return models.NewErrorResult(models.ErrCodeDependencyUnavailable,
				fmt.Sprintf("%s requires %s, which is not available.", desc.DisplayName, need))
		}
	}

	in, err := buildInput(desc, p)
	if err != nil {
		return errorRecord(err)
	}

	if desc.Fetch {
		page, err := r.fetcher.Fetch(ctx, in.URL.String())
		if err != nil {
			return errorRecord(err)
		}
		in.Page = page
		in.Doc = document.Parse(page.Body, in.URL)
	}

	out, err := tool.Analyzer.Analyze(ctx, in)
	if err != nil {
		return errorRecord(err)
	}
	if out == nil {
		return models.NewErrorResult(models.ErrCodeAnalysis, "Analysis produced no result.")
	}
	return out
}

// buildInput validates the payload against the tool's input kind.
func buildInput(desc models.ToolDescriptor, p models.Payload) (analyzer.Input, error) {
	var in analyzer.Input
	switch desc.InputKind {
	case models.InputURL:
		u, err := fetcher.ParseTarget(p.Input)
		if err != nil {
			return in, err
		}
		in.URL = u

	case models.InputRawText:
		in.Text = p.Input

	case models.InputCompound:
		fields := p.Fields
		if len(fields) == 0 && strings.TrimSpace(p.Input) != "" {
			parsed, err := ParseCompound(p.Input, desc)
			if err != nil {
				return in, err
			}
			fields = parsed
		}
		in.Fields = make(map[string]string, len(desc.Fields))
		for _, f := range desc.Fields {
			v := strings.TrimSpace(fields[f.Name])
			if v == "" && f.Required {
				return in, models.NewToolError(models.ErrCodeInvalidInput,
					fmt.Sprintf("Missing field %q. %s", f.Name, Guidance(desc)), nil)
			}
			in.Fields[f.Name] = v
		}
		if _, ok := desc.Field("url"); ok && in.Fields["url"] != "" {
			u, err := fetcher.ParseTarget(in.Fields["url"])
			if err != nil {
				return in, err
			}
			in.URL = u
		}
	}
	return in, nil
}

// Guidance describes the legacy delimited form of a compound tool's input,
// e.g. "Input must be 'TITLE|||DESCRIPTION|||URL'".
func Guidance(desc models.ToolDescriptor) string {
	names := make([]string, len(desc.Fields))
	for i, f := range desc.Fields {
		names[i] = strings.ToUpper(f.Name)
	}
	return fmt.Sprintf("Input must be '%s'", strings.Join(names, CompoundDelimiter))
}

// ParseCompound splits a legacy "A|||B|||C" string into the descriptor's
// named fields. Trailing optional fields may be omitted.
func ParseCompound(raw string, desc models.ToolDescriptor) (map[string]string, error) {
	parts := strings.Split(raw, CompoundDelimiter)

	minParts := 0
	for i, f := range desc.Fields {
		if f.Required {
			minParts = i + 1
		}
	}
	if len(parts) < minParts || len(parts) > len(desc.Fields) {
		return nil, models.NewToolError(models.ErrCodeInvalidInput, Guidance(desc), nil)
	}

	fields := make(map[string]string, len(parts))
	for i, part := range parts {
		fields[desc.Fields[i].Name] = strings.TrimSpace(part)
	}
	return fields, nil
}

// errorRecord maps an error to an Error record carrying only diagnostics.
func errorRecord(err error) *models.ResultRecord {
	var (
		fe *fetcher.FetchError
		te *models.ToolError
	)
	switch {
	case errors.As(err, &fe):
		return fetchFailure(fe)
	case errors.As(err, &te):
		rec := models.NewErrorResult(te.Code, te.Message)
		if te.Err != nil {
			rec.Set("detail", te.Err.Error())
		}
		return rec
	case errors.Is(err, analyzer.ErrDependencyUnavailable):
		return models.NewErrorResult(models.ErrCodeDependencyUnavailable, "A dependency this tool needs is not available.")
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewErrorResult(models.ErrCodeFetchTimeout, "The analysis timed out.")
	case errors.Is(err, context.Canceled):
		return models.NewErrorResult(models.ErrCodeAnalysis, "The analysis was cancelled.")
	default:
		return models.NewErrorResult(models.ErrCodeAnalysis, err.Error())
	}
}

func fetchFailure(fe *fetcher.FetchError) *models.ResultRecord {
	if fe.Kind == fetcher.KindInvalidInput {
		return models.NewErrorResult(models.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid URL %q: input must be an absolute http(s) URL.", fe.URL)).
			Set("detail", fe.Error())
	}

	code := models.ErrCodeFetchFailure
	switch fe.Kind {
	case fetcher.KindTimeout:
		code = models.ErrCodeFetchTimeout
	case fetcher.KindHTTPStatus:
		code = models.ErrCodeHTTPStatus
	}
	rec := models.NewErrorResult(code, models.MsgFetchFailed)
	if fe.StatusCode != 0 {
		rec.Set("status_code", fe.StatusCode)
	}
	if fe.URL != "" {
		rec.Set("url", fe.URL)
	}
	return rec.Set("detail", fe.Error())
}
