package simhash

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	if Fingerprint(text) != Fingerprint(text) {
		t.Error("identical texts produced different fingerprints")
	}
	if Fingerprint("hello") == 0 {
		t.Error("single word should produce a non-zero fingerprint")
	}
}

func TestFingerprintNormalizesCaseAndPunctuation(t *testing.T) {
	a := Fingerprint("The quick, brown fox!")
	b := Fingerprint("the quick brown fox")
	if a != b {
		t.Errorf("normalized texts differ by %d bits", Distance(a, b))
	}
}

func TestFingerprintDistanceTracksSimilarity(t *testing.T) {
	base := Fingerprint("the quick brown fox jumps over the lazy dog")
	near := Fingerprint("the quick brown fox leaps over the lazy dog")
	far := Fingerprint("completely unrelated content about quantum physics and mathematics")

	if d := Distance(base, near); d > 10 {
		t.Errorf("similar texts too far apart: %d", d)
	}
	if d := Distance(base, far); d < 5 {
		t.Errorf("different texts too close: %d", d)
	}
}

func TestFingerprintEmpty(t *testing.T) {
	for _, in := range []string{"", "   \t\n  ", "!!! ..."} {
		if fp := Fingerprint(in); fp != 0 {
			t.Errorf("Fingerprint(%q) = %064b, want 0", in, fp)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarAndSimilarity(t *testing.T) {
	a := Fingerprint("the quick brown fox")
	b := Fingerprint("a completely different text about nothing related")
	d := Distance(a, b)

	if !Similar(a, a, 0) {
		t.Error("identical fingerprints should be similar at threshold 0")
	}
	if Similar(a, b, d-1) || !Similar(a, b, d) {
		t.Errorf("threshold boundary wrong at distance %d", d)
	}
	if got := Similarity(0, 0); got != 100 {
		t.Errorf("Similarity(0, 0) = %v, want 100", got)
	}
	if got := Similarity(0, 1); got != 98.44 {
		t.Errorf("Similarity(0, 1) = %v, want 98.44", got)
	}
}

func TestFingerprintDOM(t *testing.T) {
	same1 := `<html><head><title>Page 1</title></head><body><div><h1>Hello</h1><p>World</p></div></body></html>`
	same2 := `<html><head><title>Page 2</title></head><body><div><h1>Hi</h1><p>Earth</p></div></body></html>`
	if FingerprintDOM(same1) != FingerprintDOM(same2) {
		t.Error("identical structures should share a fingerprint")
	}

	list := `<html><body><div><h1>Title</h1><p>Text</p><p>More text</p></div></body></html>`
	table := `<html><body><table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table></body></html>`
	if d := Distance(FingerprintDOM(list), FingerprintDOM(table)); d < 3 {
		t.Errorf("different structures too close: %d", d)
	}

	if FingerprintDOM("") != 0 || FingerprintDOM("plain text only") != 0 {
		t.Error("markup without tags should hash to 0")
	}
	if FingerprintDOM("<br/>") == 0 {
		t.Error("single tag should hash to non-zero")
	}
}

func TestOpenTagsAndShingles(t *testing.T) {
	tags := openTags(`<html><head><title>T</title></head><body><div><p>x</p></div></body></html>`)
	want := []string{"html", "head", "title", "body", "div", "p"}
	if len(tags) != len(want) {
		t.Fatalf("openTags = %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, tags[i], want[i])
		}
	}

	sh := shingle([]string{"a", "b", "c", "d"}, 3)
	if len(sh) != 2 || sh[0] != "a_b_c" || sh[1] != "b_c_d" {
		t.Errorf("shingle = %v", sh)
	}
	if shingle([]string{"a", "b"}, 3) != nil {
		t.Error("too few tokens should give nil")
	}
}
