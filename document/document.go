// Package document is a queryable, permissively parsed HTML page.
//
// Parsing never fails: malformed markup degrades to whatever structure the
// HTML5 tree builder recovers. Relative links resolve against the URL the
// page was fetched from; a <base> element is ignored.
package document

import (
	"bytes"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document wraps a parsed tree together with its base URL. A Document is
// owned by a single analysis and is not safe for concurrent mutation.
type Document struct {
	root *html.Node
	base *url.URL
	sel  *goquery.Document
}

// Parse builds a Document from raw markup. base may be nil for pasted HTML.
func Parse(body []byte, base *url.URL) *Document {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// Only reader errors reach here; a byte slice never produces one.
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{root: root, base: base, sel: goquery.NewDocumentFromNode(root)}
}

// ParseString is Parse for string input.
func ParseString(markup string, base *url.URL) *Document {
	return Parse([]byte(markup), base)
}

// Base returns the URL relative links resolve against. It may be nil.
func (d *Document) Base() *url.URL {
	return d.base
}

// Query exposes the goquery view of the tree.
func (d *Document) Query() *goquery.Document {
	return d.sel
}

// FindAll yields every element named tag ("" or "*" for any) that passes
// all filters, in document order. The sequence is lazy and can be ranged
// over any number of times.
func (d *Document) FindAll(tag string, filters ...Filter) iter.Seq[Element] {
	tag = strings.ToLower(tag)
	return func(yield func(Element) bool) {
		walk(d.root, func(n *html.Node) bool {
			if n.Type != html.ElementNode {
				return true
			}
			if tag != "" && tag != "*" && n.Data != tag {
				return true
			}
			el := Element{node: n}
			for _, f := range filters {
				if !f(el) {
					return true
				}
			}
			return yield(el)
		})
	}
}

// First returns the first element FindAll would yield.
func (d *Document) First(tag string, filters ...Filter) (Element, bool) {
	for el := range d.FindAll(tag, filters...) {
		return el, true
	}
	return Element{}, false
}

// Count returns how many elements FindAll would yield.
func (d *Document) Count(tag string, filters ...Filter) int {
	n := 0
	for range d.FindAll(tag, filters...) {
		n++
	}
	return n
}

// Select yields the elements matching a CSS selector in document order.
func (d *Document) Select(css string) (iter.Seq[Element], error) {
	matcher, err := cascadia.Compile(css)
	if err != nil {
		return nil, err
	}
	return func(yield func(Element) bool) {
		for _, n := range cascadia.QueryAll(d.root, matcher) {
			if !yield(Element{node: n}) {
				return
			}
		}
	}, nil
}

// Text returns the visible text of the page: script, style, noscript and
// template subtrees are skipped, runs of whitespace collapse to one space
// and the result is trimmed.
func (d *Document) Text() string {
	return visibleText(d.root)
}

// Title returns the trimmed text of the first <title>, or "".
func (d *Document) Title() string {
	if el, ok := d.First("title"); ok {
		return el.Text()
	}
	return ""
}

// Meta returns the content of the first <meta name=...> with a matching
// name. ok is false when no such tag exists.
func (d *Document) Meta(name string) (content string, ok bool) {
	el, found := d.First("meta", AttrEquals("name", name))
	if !found {
		return "", false
	}
	content, _ = el.Attr("content")
	return strings.TrimSpace(content), true
}

// MetaProperty is Meta for the property attribute used by Open Graph.
func (d *Document) MetaProperty(property string) (content string, ok bool) {
	el, found := d.First("meta", AttrEquals("property", property))
	if !found {
		return "", false
	}
	content, _ = el.Attr("content")
	return strings.TrimSpace(content), true
}

// Resolve turns href into an absolute URL against the fetch URL.
func (d *Document) Resolve(href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	if d.base == nil {
		return url.Parse(href)
	}
	return d.base.Parse(href)
}

// HTML renders the whole tree back to markup.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// walk visits n and its descendants in pre-order. visit returns false to
// stop the whole walk.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

func visibleText(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
			return
		case html.ElementNode:
			if invisible[n.Data] {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
