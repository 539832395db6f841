package content

import (
	"strings"
	"testing"
)

const articlePage = `<html><head><title>Gardening notes</title></head><body>
<nav class="menu"><a href="/">Home</a> <a href="/about">About</a></nav>
<article class="post-content">
<h1>Growing tomatoes</h1>
<p>Tomatoes need full sun, regular watering and a sturdy support. Plant them after
the last frost and feed them every two weeks once the first fruit sets. See the
<a href="/guides/soil">soil guide</a> for bed preparation.</p>
<p>Pinch out side shoots on cordon varieties so the plant puts its energy into
fruit rather than leaves. Harvest when the fruit is evenly coloured.</p>
</article>
<footer class="footer">Copyright</footer>
</body></html>`

func TestExtractMarkdownWithCitations(t *testing.T) {
	res, err := NewExtractor().Extract(articlePage, "https://garden.example/tomatoes", Options{Citations: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Format != FormatMarkdown {
		t.Errorf("Format = %q", res.Format)
	}
	if !strings.Contains(res.Content, "full sun") {
		t.Errorf("content missing article text:\n%s", res.Content)
	}
	if !strings.Contains(res.Content, "https://garden.example/guides/soil") {
		t.Errorf("relative link not resolved:\n%s", res.Content)
	}
	if res.OriginalTokens == 0 || res.CleanedTokens > res.OriginalTokens {
		t.Errorf("tokens = %d -> %d", res.OriginalTokens, res.CleanedTokens)
	}
}

func TestExtractRejectsUnknownOptions(t *testing.T) {
	if _, err := NewExtractor().Extract(articlePage, "https://garden.example/", Options{Mode: "magic"}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewExtractor().Extract(articlePage, "https://garden.example/", Options{Format: "pdf"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPruneDropsBoilerplate(t *testing.T) {
	out, err := PruneContent(articlePage)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Copyright") {
		t.Errorf("footer survived pruning:\n%s", out)
	}
	if !strings.Contains(out, "Growing tomatoes") {
		t.Errorf("article dropped by pruning:\n%s", out)
	}
}

func TestConvertToCitations(t *testing.T) {
	in := "See [Go](https://go.dev) and [again](https://go.dev) and [pkg](https://pkg.go.dev)"
	want := "See [Go][1] and [again][1] and [pkg][2]\n\n---\n[1]: https://go.dev\n[2]: https://pkg.go.dev"
	if got := ConvertToCitations(in); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
	if got := ConvertToCitations("no links"); got != "no links" {
		t.Errorf("got %q", got)
	}
}

func TestFilterContent(t *testing.T) {
	out := FilterContent(articlePage, []string{"article"}, []string{"a"})
	if strings.Contains(out, "soil guide") || strings.Contains(out, "Home") {
		t.Errorf("excluded anchors survived: %s", out)
	}
	if !strings.HasPrefix(out, "<article") {
		t.Errorf("include did not narrow to article: %.40s", out)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := map[string]int{"": 0, "ab": 1, "abcdef": 2}
	for in, want := range tests {
		if got := EstimateTokens(in); got != want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", in, got, want)
		}
	}
}
