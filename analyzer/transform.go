package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/use-agent/pagelens/models"
)

const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
	mediaJS   = "application/javascript"
)

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaHTML, minhtml.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return m
}()

var (
	blockComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment    = regexp.MustCompile(`(^|[^:\\])//[^\n]*`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	spaceRun       = regexp.MustCompile(`\s+`)
	tagGap         = regexp.MustCompile(`>\s+<`)
	cssPunctSpace  = regexp.MustCompile(`\s*([{}:;,])\s*`)
	cssTrailingSem = regexp.MustCompile(`;+\}`)
	jsPunctSpace   = regexp.MustCompile(`\s*([=+\-*/%{};:,()<>])\s*`)
)

func regexMinifyCSS(s string) string {
	s = blockComment.ReplaceAllString(s, "")
	s = cssPunctSpace.ReplaceAllString(s, "$1")
	s = cssTrailingSem.ReplaceAllString(s, "}")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func regexMinifyHTML(s string) string {
	s = htmlComment.ReplaceAllString(s, "")
	s = tagGap.ReplaceAllString(s, "><")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func regexMinifyJS(s string) string {
	s = lineComment.ReplaceAllString(s, "$1")
	s = blockComment.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(jsPunctSpace.ReplaceAllString(s, "$1"))
}

const (
	methodLibrary = "tdewolff"
	methodRegex   = "regex"
)

// maxMinifyPasses bounds the fixpoint loop in Minify.
const maxMinifyPasses = 8

// Minify shrinks s with the tdewolff minifier for mediatype, falling back to
// the regex minifier when the library rejects the input. The step is
// repeated until the output stops changing, so minifying a minified
// string returns it unchanged. method reports which minifier ran last.
func Minify(mediatype, s string, fallback func(string) string) (out, method string) {
	out = s
	for range maxMinifyPasses {
		next, err := minifier.String(mediatype, out)
		method = methodLibrary
		if err != nil {
			next, method = fallback(out), methodRegex
		}
		if next == out {
			break
		}
		out = next
	}
	return out, method
}

// TextTransform is a minifier tool over a raw text payload. It never fails:
// empty input produces empty output.
type TextTransform struct {
	Lang      string // "css", "html", "js": names the minified_* field
	Label     string // message subject, e.g. "CSS"
	MediaType string
	Fallback  func(string) string
}

func (t TextTransform) Analyze(_ context.Context, in Input) (*models.ResultRecord, error) {
	out, method := Minify(t.MediaType, in.Text, t.Fallback)
	orig, small := utf8.RuneCountInString(in.Text), utf8.RuneCountInString(out)
	return models.NewResult().
		Set("minified_"+t.Lang, out).
		Set("original_size", orig).
		Set("minified_size", small).
		Set("reduction_percent", round2(percent(orig-small, orig))).
		Set("method", method).
		Messagef("%s minified.", t.Label), nil
}

// splitWords breaks a keyword on spaces, hyphens and underscores.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}

func camelCase(s string) string {
	var b strings.Builder
	for i, w := range splitWords(strings.ToLower(s)) {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(w[size:])
	}
	return b.String()
}

func convertCase(_ context.Context, in Input) (*models.ResultRecord, error) {
	keyword := strings.TrimSpace(in.Text)
	lower := strings.ToLower(keyword)
	// Casers keep state, so each call gets its own.
	title := cases.Title(language.English).String(keyword)

	return models.NewResult().
		Set("original", keyword).
		Set("lower", lower).
		Set("upper", strings.ToUpper(keyword)).
		Set("title_case", title).
		Set("snake_case", strings.NewReplacer(" ", "_", "-", "_").Replace(lower)).
		Set("kebab_case", strings.NewReplacer(" ", "-", "_", "-").Replace(lower)).
		Set("camel_case", camelCase(keyword)).
		Messagef("Keyword case conversions."), nil
}

func obfuscateEmail(_ context.Context, in Input) (*models.ResultRecord, error) {
	email := strings.TrimSpace(in.Text)

	var entities strings.Builder
	for _, r := range email {
		fmt.Fprintf(&entities, "&#%d;", r)
	}

	return models.NewResult().
		Set("original_email", email).
		Set("obfuscated_text", strings.NewReplacer("@", " [at] ", ".", " [dot] ").Replace(email)).
		Set("obfuscated_html", entities.String()).
		Messagef("Email obfuscated."), nil
}
