package document

import (
	"net/url"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Sample   page </title>
  <meta name="Description" content=" A short description. ">
  <meta property="og:title" content="OG title">
  <style>body { color: red; }</style>
  <script>var hidden = "do not count";</script>
  <base href="https://cdn.example.net/">
</head>
<body>
  <h1>Main</h1>
  <p>First   paragraph with <a href="/about">about us</a>.</p>
  <noscript>Enable JS</noscript>
  <a href="https://other.example.org/x">elsewhere</a>
  <a name="anchor-only">no href</a>
  <img src="a.png" alt="">
  <img src="b.png">
</body>
</html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	base, err := url.Parse("https://example.com/blog/post")
	if err != nil {
		t.Fatal(err)
	}
	return ParseString(samplePage, base)
}

func TestFindAllDocumentOrderAndRestartable(t *testing.T) {
	doc := mustParse(t)
	links := doc.FindAll("a", HasAttr("href"))

	for pass := 0; pass < 2; pass++ {
		var hrefs []string
		for el := range links {
			hrefs = append(hrefs, el.AttrOr("href", ""))
		}
		if len(hrefs) != 2 || hrefs[0] != "/about" || hrefs[1] != "https://other.example.org/x" {
			t.Fatalf("pass %d: hrefs = %v", pass, hrefs)
		}
	}
}

func TestFindAllEarlyStop(t *testing.T) {
	doc := mustParse(t)
	n := 0
	for range doc.FindAll("") {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestTextSkipsScriptAndStyle(t *testing.T) {
	doc := mustParse(t)
	want := "Sample page Main First paragraph with about us . elsewhere no href"
	if got := doc.Text(); got != want {
		t.Errorf("Text() = %q\nwant     %q", got, want)
	}
}

func TestTitleAndMeta(t *testing.T) {
	doc := mustParse(t)
	if got := doc.Title(); got != "Sample page" {
		t.Errorf("Title() = %q", got)
	}
	desc, ok := doc.Meta("description")
	if !ok || desc != "A short description." {
		t.Errorf("Meta(description) = %q, %v", desc, ok)
	}
	og, ok := doc.MetaProperty("og:title")
	if !ok || og != "OG title" {
		t.Errorf("MetaProperty(og:title) = %q, %v", og, ok)
	}
	if _, ok := doc.Meta("keywords"); ok {
		t.Error("Meta(keywords) reported present")
	}
}

func TestResolveIgnoresBaseElement(t *testing.T) {
	doc := mustParse(t)
	u, err := doc.Resolve(" ../about ")
	if err != nil {
		t.Fatal(err)
	}
	if got := u.String(); got != "https://example.com/about" {
		t.Errorf("Resolve = %s", got)
	}
}

func TestSelect(t *testing.T) {
	doc := mustParse(t)
	seq, err := doc.Select("img:not([alt])")
	if err != nil {
		t.Fatal(err)
	}
	var srcs []string
	for el := range seq {
		srcs = append(srcs, el.AttrOr("src", ""))
	}
	if len(srcs) != 1 || srcs[0] != "b.png" {
		t.Errorf("srcs = %v", srcs)
	}

	if _, err := doc.Select("a[[["); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestParseMalformed(t *testing.T) {
	doc := ParseString("<div><p>unclosed <b>bold<div>next", nil)
	if got := doc.Text(); got != "unclosed bold next" {
		t.Errorf("Text() = %q", got)
	}
	if doc.Count("div") != 2 {
		t.Errorf("Count(div) = %d, want 2", doc.Count("div"))
	}

	empty := Parse(nil, nil)
	if empty.Text() != "" || empty.Title() != "" {
		t.Error("empty document should have no text")
	}
}
