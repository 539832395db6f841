package document

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is one node yielded by FindAll or Select.
type Element struct {
	node *html.Node
}

// Tag returns the lower-case element name.
func (e Element) Tag() string {
	if e.node == nil {
		return ""
	}
	return e.node.Data
}

// Attr returns an attribute value. Attribute names are matched
// case-insensitively; the parser already lower-cases them.
func (e Element) Attr(name string) (string, bool) {
	if e.node == nil {
		return "", false
	}
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns an attribute value or fallback when absent.
func (e Element) AttrOr(name, fallback string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return fallback
}

// Text returns the element's visible text, whitespace collapsed and trimmed.
func (e Element) Text() string {
	if e.node == nil {
		return ""
	}
	return visibleText(e.node)
}

// RawText returns the concatenated text nodes without any normalization,
// including script content. Used for <script type="application/ld+json">.
func (e Element) RawText() string {
	if e.node == nil {
		return ""
	}
	var buf strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		return true
	})
	return buf.String()
}

// OuterHTML renders the element and its children.
func (e Element) OuterHTML() string {
	if e.node == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, e.node)
	return buf.String()
}

// Selection wraps the element for goquery traversal.
func (e Element) Selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}
