package analyzer

import (
	"context"
	"fmt"

	"github.com/use-agent/pagelens/content"
	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/simhash"
)

func extractContent(ex *content.Extractor) Func {
	return func(_ context.Context, in Input) (*models.ResultRecord, error) {
		if in.Page == nil {
			return nil, fmt.Errorf("analyzer: page was not fetched")
		}
		opts := content.Options{Mode: in.Field("mode"), Format: in.Field("format")}
		if err := opts.Validate(); err != nil {
			return nil, invalidInput(err.Error())
		}

		res, err := ex.Extract(string(in.Page.Body), in.URL.String(), opts)
		if err != nil {
			return nil, err
		}
		return models.NewResult().
			Set("title", res.Title).
			Set("byline", res.Byline).
			Set("excerpt", res.Excerpt).
			Set("site_name", res.SiteName).
			Set("language", res.Language).
			Set("mode", res.ModeUsed).
			Set("format", res.Format).
			Set("content", res.Content).
			Set("original_tokens", res.OriginalTokens).
			Set("content_tokens", res.CleanedTokens).
			Set("savings_percent", res.SavingsPercent).
			Messagef("Extracted main content (%d tokens, %.2f%% smaller than the page).", res.CleanedTokens, res.SavingsPercent), nil
	}
}

// duplicateThreshold is the largest text fingerprint distance, in bits,
// still reported as a duplicate.
const duplicateThreshold = 3

// duplicateContent fetches compare_url and compares both pages by visible
// text and by markup structure.
func duplicateContent(deps *Deps) Func {
	return func(ctx context.Context, in Input) (*models.ResultRecord, error) {
		doc, err := needDoc(in)
		if err != nil {
			return nil, err
		}
		compare, err := fetcher.ParseTarget(in.Field("compare_url"))
		if err != nil {
			return nil, err
		}

		other, err := deps.Fetcher.Fetch(ctx, compare.String())
		if err != nil {
			return nil, err
		}
		otherDoc := document.Parse(other.Body, compare)

		textA, textB := simhash.Fingerprint(doc.Text()), simhash.Fingerprint(otherDoc.Text())
		domA, domB := simhash.FingerprintDOM(string(in.Page.Body)), simhash.FingerprintDOM(string(other.Body))
		textDistance := simhash.Distance(textA, textB)
		duplicate := simhash.Similar(textA, textB, duplicateThreshold)

		rec := models.NewResult().
			Set("url", in.URL.String()).
			Set("compare_url", compare.String()).
			Set("text_distance", textDistance).
			Set("text_similarity_percent", simhash.Similarity(textA, textB)).
			Set("structure_distance", simhash.Distance(domA, domB)).
			Set("structure_similarity_percent", simhash.Similarity(domA, domB)).
			Set("is_duplicate", duplicate)
		if duplicate {
			return rec.Messagef("The pages are near-duplicates (text fingerprints differ by %d bits).", textDistance), nil
		}
		return rec.Messagef("The pages are distinct (text fingerprints differ by %d bits).", textDistance), nil
	}
}
