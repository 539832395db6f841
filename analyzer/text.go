package analyzer

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/use-agent/pagelens/models"
)

// isWordRune matches the word characters of a token: letters, digits and
// underscore.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// wordTokens splits on every non-word rune and lowercases.
func wordTokens(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// strippedWords drops punctuation without splitting on it ("don't" becomes
// "dont"), then splits on whitespace and lowercases.
func strippedWords(text string) []string {
	clean := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	return strings.Fields(strings.ToLower(clean))
}

type wordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// counter tallies words, remembering first-seen order for stable ties.
type counter struct {
	counts map[string]int
	order  []string
}

func countWords(words []string) *counter {
	c := &counter{counts: make(map[string]int)}
	for _, w := range words {
		if c.counts[w] == 0 {
			c.order = append(c.order, w)
		}
		c.counts[w]++
	}
	return c
}

func (c *counter) unique() int { return len(c.order) }

// mostCommon returns the n highest counts; ties keep first-seen order.
func (c *counter) mostCommon(n int) []wordCount {
	out := make([]wordCount, 0, len(c.order))
	for _, w := range c.order {
		out = append(out, wordCount{Word: w, Count: c.counts[w]})
	}
	slices.SortStableFunc(out, func(a, b wordCount) int { return b.Count - a.Count })
	return head(out, n)
}

func countPageWords(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	n := len(strings.Fields(doc.Text()))
	return models.NewResult().
		Set("word_count", n).
		Messagef("The page contains %d words.", n), nil
}

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	vowelGroup    = regexp.MustCompile(`[aeiouy]+`)
)

func syllables(word string) int {
	return max(1, len(vowelGroup.FindAllString(strings.ToLower(word), -1)))
}

// Readability holds the Flesch scores of a text.
type Readability struct {
	ReadingEase float64
	Grade       float64
	Sentences   int
	Words       int
	Syllables   int
}

// ScoreReadability computes Flesch reading ease and Flesch-Kincaid grade.
// Every count is floored at 1.
func ScoreReadability(text string) Readability {
	sentences := 0
	for _, s := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := wordTokens(text)
	syl := 0
	for _, w := range words {
		syl += syllables(w)
	}

	r := Readability{Sentences: max(1, sentences), Words: max(1, len(words)), Syllables: max(1, syl)}
	wps := float64(r.Words) / float64(r.Sentences)
	spw := float64(r.Syllables) / float64(r.Words)
	r.ReadingEase = round2(206.835 - 1.015*wps - 84.6*spw)
	r.Grade = round2(0.39*wps + 11.8*spw - 15.59)
	return r
}

func scoreReadability(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	r := ScoreReadability(doc.Text())

	msg := "The text may be somewhat difficult to read. Consider simplifying sentences."
	if r.ReadingEase >= 60 {
		msg = "The text is relatively easy to read and understand for a general audience."
	}
	return models.NewResult().
		Set("flesch_reading_ease", r.ReadingEase).
		Set("flesch_kincaid_grade", r.Grade).
		Set("num_sentences", r.Sentences).
		Set("num_words", r.Words).
		Set("num_syllables", r.Syllables).
		Messagef("%s", msg), nil
}

type wordDensity struct {
	Word           string  `json:"word"`
	Count          int     `json:"count"`
	DensityPercent float64 `json:"density_percent"`
}

// KeywordDensity reports how often keyword occurs among the words of text
// longer than one character. An empty keyword yields the ten most frequent
// words instead.
func KeywordDensity(text, keyword string) *models.ResultRecord {
	var words []string
	for _, w := range wordTokens(text) {
		if len([]rune(w)) > 1 {
			words = append(words, w)
		}
	}
	total := len(words)
	counts := countWords(words)

	if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
		count := counts.counts[keyword]
		density := round2(percent(count, total))
		return models.NewResult().
			Set("keyword", keyword).
			Set("count", count).
			Set("total_words", total).
			Set("density_percent", density).
			Messagef("'%s' appears %d times (%.2f%%) out of %d words.", keyword, count, density, total)
	}

	top := counts.mostCommon(10)
	list := make([]wordDensity, len(top))
	for i, wc := range top {
		list[i] = wordDensity{Word: wc.Word, Count: wc.Count, DensityPercent: round2(percent(wc.Count, total))}
	}
	return models.NewResult().
		Set("total_words", total).
		Set("top_words", list).
		Messagef("Top 10 most frequent words and their density on the page.")
}

func keywordDensity(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	return KeywordDensity(doc.Text(), in.Field("keyword")), nil
}

func keywordPosition(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	keyword := strings.ToLower(in.Field("keyword"))

	positions := []int{}
	for i, w := range strippedWords(doc.Text()) {
		if w == keyword {
			positions = append(positions, i)
		}
	}
	return models.NewResult().
		Set("keyword", keyword).
		Set("positions", positions).
		Set("occurrences", len(positions)).
		Messagef("Keyword '%s' found %d time(s).", keyword, len(positions)), nil
}

func wordFrequency(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	words := strippedWords(doc.Text())
	counts := countWords(words)
	return models.NewResult().
		Set("total_words", len(words)).
		Set("unique_words", counts.unique()).
		Set("top_20_words", counts.mostCommon(20)).
		Messagef("Word frequency analysis complete."), nil
}

var keywordStopwords = map[string]bool{
	"the": true, "and": true, "a": true, "an": true, "of": true, "to": true,
	"for": true, "in": true, "on": true, "at": true, "with": true, "is": true,
	"it": true, "by": true, "this": true, "that": true, "as": true, "are": true,
	"was": true, "were": true, "be": true, "or": true, "from": true, "but": true,
	"not": true, "can": true, "has": true, "have": true, "had": true,
}

func textToKeywords(_ context.Context, in Input) (*models.ResultRecord, error) {
	var keywords []string
	for _, w := range strippedWords(in.Text) {
		if !keywordStopwords[w] {
			keywords = append(keywords, w)
		}
	}
	return models.NewResult().
		Set("top_keywords", countWords(keywords).mostCommon(15)).
		Messagef("Keyword extraction complete."), nil
}

var relatedWords = map[string][]string{
	"seo":     {"search engine optimization", "google ranking", "organic traffic", "site optimization"},
	"website": {"site", "webpage", "portal", "web presence"},
	"speed":   {"performance", "load time", "latency", "response time"},
}

func keywordSuggestions(_ context.Context, in Input) (*models.ResultRecord, error) {
	keyword := strings.ToLower(strings.TrimSpace(in.Text))
	suggestions := orEmpty(slices.Clone(relatedWords[keyword]))

	rec := models.NewResult().
		Set("keyword", keyword).
		Set("suggestions", suggestions)
	if len(suggestions) == 0 {
		return rec.Messagef("No suggestions found."), nil
	}
	return rec.Messagef("Found %d suggestions.", len(suggestions)), nil
}
