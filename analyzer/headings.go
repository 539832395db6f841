package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/pagelens/models"
)

type headingDetail struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// headingLevel returns 1..6 for h1..h6 and 0 for anything else.
func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// analyzeHeadings scans the page top to bottom once, counting H1-H6 and
// flagging a missing or repeated H1 and every jump of more than one level.
func analyzeHeadings(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	var (
		counts  [7]int
		order   []string
		details []headingDetail
		jumps   []string
		last    int
	)
	for el := range doc.FindAll("") {
		level := headingLevel(el.Tag())
		if level == 0 {
			continue
		}
		name := fmt.Sprintf("H%d", level)
		counts[level]++
		order = append(order, name)
		details = append(details, headingDetail{Level: name, Text: el.Text()})

		if last != 0 && level > last+1 {
			jumps = append(jumps, fmt.Sprintf("Heading level jumps from H%d to %s. Consider using sequential heading levels.", last, name))
		}
		last = level
	}

	var issues []string
	switch {
	case counts[1] == 0:
		issues = append(issues, "No H1 tag found. Every page should have one H1 heading.")
	case counts[1] > 1:
		issues = append(issues, fmt.Sprintf("Multiple (%d) H1 tags found. Use only one H1 per page.", counts[1]))
	}
	issues = append(issues, jumps...)

	countMap := models.NewFields()
	summary := make([]string, 0, 6)
	for level := 1; level <= 6; level++ {
		name := fmt.Sprintf("H%d", level)
		countMap.Set(name, counts[level])
		summary = append(summary, fmt.Sprintf("%s: %d", name, counts[level]))
	}

	msg := "Heading summary: " + strings.Join(summary, ", ") + "."
	if len(issues) == 0 {
		msg += " Heading structure looks good."
	} else {
		msg += " Issues detected: " + strings.Join(issues, "; ")
	}

	rec := models.NewResult().
		Set("heading_counts", countMap).
		Set("heading_order", orEmpty(order)).
		Set("headings_detail", orEmpty(details)).
		Set("issues", orEmpty(issues))
	rec.Message = msg
	return rec, nil
}

func extractH1(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}
	var texts []string
	for el := range doc.FindAll("h1") {
		texts = append(texts, el.Text())
	}
	return models.NewResult().
		Set("h1_tags", orEmpty(texts)).
		Set("count", len(texts)).
		Messagef("Found %d H1 tag(s) on the page.", len(texts)), nil
}
