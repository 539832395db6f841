package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FilterContent removes elements matching exclude, then keeps only the
// elements matching include. When include matches nothing the excluded
// page is returned. With both lists empty the input is returned as is.
func FilterContent(rawHTML string, include, exclude []string) string {
	if len(include) == 0 && len(exclude) == 0 {
		return rawHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	for _, sel := range exclude {
		doc.Find(sel).Remove()
	}

	if len(include) > 0 {
		if matches := doc.Find(strings.Join(include, ", ")); matches.Length() > 0 {
			var buf strings.Builder
			matches.Each(func(_ int, s *goquery.Selection) {
				if h, err := goquery.OuterHtml(s); err == nil {
					buf.WriteString(h)
				}
			})
			return buf.String()
		}
	}

	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}
