package analyzer

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/models"
)

// Search results cut titles and descriptions at roughly these lengths.
const (
	serpTitleLimit       = 60
	serpDescriptionLimit = 160
)

func ellipsize(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	return strings.TrimSpace(truncateRunes(s, n-3)) + "...", true
}

// breadcrumb renders a URL the way result pages show it:
// host › segment › segment.
func breadcrumb(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	parts := []string{u.Host}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, " › ")
}

func serpPreview(_ context.Context, in Input) (*models.ResultRecord, error) {
	title, desc, link := in.Field("title"), in.Field("description"), in.Field("url")
	shownTitle, titleCut := ellipsize(title, serpTitleLimit)
	shownDesc, descCut := ellipsize(desc, serpDescriptionLimit)

	return models.NewResult().
		Set("title", title).
		Set("description", desc).
		Set("url", link).
		Set("title_length", utf8.RuneCountInString(title)).
		Set("description_length", utf8.RuneCountInString(desc)).
		Set("title_truncated", titleCut).
		Set("description_truncated", descCut).
		Set("display_title", shownTitle).
		Set("display_description", shownDesc).
		Set("display_url", breadcrumb(link)).
		Messagef("SERP preview data ready."), nil
}

// parseBacklinks reads a CSV export with a header row. Rows keep the header
// order; short rows are padded with empty values.
func parseBacklinks(_ context.Context, in Input) (*models.ResultRecord, error) {
	r := csv.NewReader(strings.NewReader(in.Text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.NewResult().
			Set("backlink_count", 0).
			Set("unique_domains", 0).
			Set("sample", []*models.Fields{}).
			Messagef("Parsed 0 backlinks from 0 unique domains."), nil
	}
	if err != nil {
		return nil, models.NewToolError(models.ErrCodeParseFailure, "Error parsing CSV: "+err.Error(), err)
	}

	domainCol := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(header[i], "domain") && domainCol < 0 {
			domainCol = i
		}
	}

	var (
		count   int
		sample  []*models.Fields
		domains = map[string]bool{}
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewToolError(models.ErrCodeParseFailure, "Error parsing CSV: "+err.Error(), err)
		}
		count++
		if domainCol >= 0 && domainCol < len(row) {
			domains[row[domainCol]] = true
		}
		if len(sample) < 5 {
			fields := models.NewFields()
			for i, h := range header {
				v := ""
				if i < len(row) {
					v = row[i]
				}
				fields.Set(h, v)
			}
			sample = append(sample, fields)
		}
	}

	return models.NewResult().
		Set("backlink_count", count).
		Set("unique_domains", len(domains)).
		Set("sample", orEmpty(sample)).
		Messagef("Parsed %d backlinks from %d unique domains.", count, len(domains)), nil
}

func youtubeTags(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc := document.ParseString(in.Text, nil)
	tags := []string{}
	for meta := range doc.FindAll("meta", document.AttrEquals("property", "og:video:tag"), document.HasAttr("content")) {
		tags = append(tags, meta.AttrOr("content", ""))
	}
	return models.NewResult().
		Set("tags", tags).
		Messagef("Found %d YouTube video tag(s).", len(tags)), nil
}
