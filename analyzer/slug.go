package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/use-agent/pagelens/models"
)

var slugStopwords = map[string]bool{
	"the": true, "and": true, "or": true, "a": true, "an": true, "of": true, "to": true,
	"in": true, "for": true, "on": true, "at": true, "with": true, "from": true, "by": true,
}

var (
	slugSeparators  = regexp.MustCompile(`[-_/]`)
	slugSpecialChar = regexp.MustCompile(`[^a-z0-9\-/]`)
)

const maxSlugLength = 60

// SuggestSlug rewrites each path segment as a lowercase hyphenated slug
// without stopwords.
func SuggestSlug(path string) string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		var words []string
		for _, w := range strings.FieldsFunc(seg, func(r rune) bool {
			return r == '-' || r == '_' || unicode.IsSpace(r)
		}) {
			if !slugStopwords[strings.ToLower(w)] {
				words = append(words, w)
			}
		}
		if s := slug.Make(strings.Join(words, " ")); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "/")
}

func optimizeSlug(_ context.Context, in Input) (*models.ResultRecord, error) {
	path, err := url.PathUnescape(in.URL.EscapedPath())
	if err != nil {
		path = in.URL.Path
	}
	s := strings.Trim(path, "/")

	if s == "" {
		return models.NewResult().
			Set("slug", "/").
			Set("issues", []string{"URL does not have a slug (just the domain/root)."}).
			Set("recommendations", []string{"Add a descriptive, keyword-rich slug to the URL."}).
			Set("suggested_slug", "").
			Messagef("No slug found in the URL."), nil
	}

	var issues, recs []string
	if strings.ContainsAny(s, " _") {
		issues = append(issues, "Slug contains spaces or underscores.")
		recs = append(recs, "Use hyphens '-' instead of spaces or underscores.")
	}
	if strings.IndexFunc(s, unicode.IsUpper) >= 0 {
		issues = append(issues, "Slug contains uppercase letters.")
		recs = append(recs, "Convert all characters in the slug to lowercase.")
	}
	if utf8.RuneCountInString(s) > maxSlugLength {
		issues = append(issues, "Slug is too long.")
		recs = append(recs, fmt.Sprintf("Shorten the slug to under %d characters if possible.", maxSlugLength))
	}

	var stops []string
	for _, w := range slugSeparators.Split(s, -1) {
		if lw := strings.ToLower(w); slugStopwords[lw] && !slices.Contains(stops, lw) {
			stops = append(stops, lw)
		}
	}
	if len(stops) > 0 {
		issues = append(issues, fmt.Sprintf("Slug contains common stopwords: %s.", strings.Join(stops, ", ")))
		recs = append(recs, "Remove unnecessary stopwords to make the slug more concise.")
	}
	if slugSpecialChar.MatchString(strings.ToLower(s)) {
		issues = append(issues, "Slug contains special characters.")
		recs = append(recs, "Remove special characters, use only letters, numbers, and hyphens.")
	}
	if !strings.Contains(s, "-") {
		recs = append(recs, "Use hyphens '-' to separate words in the slug.")
	}

	rec := models.NewResult().
		Set("slug", s).
		Set("issues", orEmpty(issues)).
		Set("recommendations", orEmpty(recs)).
		Set("suggested_slug", SuggestSlug(s))
	if len(issues) == 0 {
		return rec.Messagef("Slug follows most SEO best practices."), nil
	}
	return rec.Messagef("Slug has some optimization issues. See recommendations."), nil
}
