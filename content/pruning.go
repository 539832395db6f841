package content

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Blocks scoring at or below zero are treated as boilerplate.
const pruneScoreThreshold = 0.0

// blockWeights combines the per-block signals into one score.
var blockWeights = struct {
	textDensity, linkDensity, tag, classID, textLength float64
}{
	textDensity: 3.0,
	linkDensity: -2.0,
	tag:         1.5,
	classID:     1.0,
	textLength:  0.5,
}

var (
	contentHints     = []string{"content", "article", "post", "entry", "body", "main", "text"}
	boilerplateHints = []string{
		"sidebar", "ad", "widget", "nav", "menu", "comment", "footer",
		"header", "banner", "popup", "modal", "cookie", "social", "share",
		"related", "recommend", "promo",
	}
)

// PruneContent keeps the direct children of <body> whose score passes the
// threshold. When none pass, the whole body is returned.
func PruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var kept []string
	body.Children().Each(func(_ int, block *goquery.Selection) {
		if scoreBlock(block) <= pruneScoreThreshold {
			return
		}
		if h, err := goquery.OuterHtml(block); err == nil {
			kept = append(kept, h)
		}
	})

	if len(kept) == 0 {
		h, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return h, nil
	}
	return strings.Join(kept, "\n"), nil
}

func scoreBlock(block *goquery.Selection) float64 {
	markup, err := goquery.OuterHtml(block)
	if err != nil {
		return 0
	}
	text := strings.TrimSpace(block.Text())

	var textDensity, linkDensity float64
	if len(markup) > 0 {
		textDensity = float64(len(text)) / float64(len(markup))
	}
	if len(text) > 0 {
		anchorText := 0
		block.Find("a").Each(func(_ int, a *goquery.Selection) {
			anchorText += len(strings.TrimSpace(a.Text()))
		})
		linkDensity = float64(anchorText) / float64(len(text))
	}

	return textDensity*blockWeights.textDensity +
		linkDensity*blockWeights.linkDensity +
		tagScore(goquery.NodeName(block))*blockWeights.tag +
		classIDScore(block)*blockWeights.classID +
		math.Log10(float64(len(text))+1)*blockWeights.textLength
}

func tagScore(tag string) float64 {
	switch tag {
	case "article", "main", "section":
		return 5
	case "nav", "footer", "aside", "header":
		return -5
	}
	return 0
}

// classIDScore adds at most one bonus and one penalty from class/id hints.
func classIDScore(block *goquery.Selection) float64 {
	class, _ := block.Attr("class")
	id, _ := block.Attr("id")
	hay := strings.ToLower(class + " " + id)

	score := 0.0
	if containsAny(hay, contentHints) {
		score += 3
	}
	if containsAny(hay, boilerplateHints) {
		score -= 3
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
