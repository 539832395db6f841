package content

import "unicode/utf8"

// EstimateTokens approximates an LLM token count as runes / 3, with any
// non-empty text counting as at least one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}
