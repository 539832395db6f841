package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// domShingleSize is the tag n-gram length used for structure fingerprints.
const domShingleSize = 3

// FingerprintDOM hashes the sequence of opening tag names, ignoring text
// and attributes, so two renderings of one template land close together.
// Markup without tags hashes to 0.
func FingerprintDOM(markup string) uint64 {
	tags := openTags(markup)
	if len(tags) == 0 {
		return 0
	}
	if shingles := shingle(tags, domShingleSize); len(shingles) > 0 {
		return fingerprintTokens(shingles)
	}
	return fingerprintTokens(tags)
}

func openTags(markup string) []string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

// shingle joins every run of n consecutive tokens with "_". It returns nil
// when there are fewer than n tokens.
func shingle(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], "_"))
	}
	return out
}
