package analyzer

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/models"
)

// LengthStatus classifies a text length against recommended bounds.
type LengthStatus string

const (
	LengthMissing  LengthStatus = "Missing"
	LengthTooShort LengthStatus = "Too Short"
	LengthGood     LengthStatus = "Good"
	LengthTooLong  LengthStatus = "Too Long"
)

// ClassifyLength places n against [lo, hi]. Both bounds count as Good.
func ClassifyLength(n, lo, hi int) LengthStatus {
	switch {
	case n == 0:
		return LengthMissing
	case n < lo:
		return LengthTooShort
	case n > hi:
		return LengthTooLong
	default:
		return LengthGood
	}
}

// LengthCheck extracts one string from the page and checks its length in
// characters.
type LengthCheck struct {
	Field   string // result key holding the value, e.g. "title"
	Subject string // message subject, e.g. "Title"
	Min     int
	Max     int

	// Placeholder replaces the value when it is missing.
	Placeholder string

	Extract func(*document.Document) string
}

func (c LengthCheck) Analyze(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	value := c.Extract(doc)
	n := utf8.RuneCountInString(value)
	status := ClassifyLength(n, c.Min, c.Max)

	shown := value
	if status == LengthMissing && c.Placeholder != "" {
		shown = c.Placeholder
	}

	return models.NewResult().
		Set(c.Field, shown).
		Set("length", n).
		Set("status", string(status)).
		Set("recommended", fmt.Sprintf("%d-%d", c.Min, c.Max)).
		Messagef("%s is %d characters long. Recommended: %d-%d characters.", c.Subject, n, c.Min, c.Max), nil
}

func pageTitle(doc *document.Document) string {
	return doc.Title()
}

func metaDescription(doc *document.Document) string {
	desc, _ := doc.Meta("description")
	return desc
}
