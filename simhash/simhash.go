// Package simhash computes 64-bit locality-sensitive fingerprints of page
// text and page structure for near-duplicate detection.
package simhash

import (
	"hash/fnv"
	"math"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint returns the SimHash of text. Words are lower-cased and
// stripped of surrounding punctuation before hashing with FNV-64a, so
// "Fox," and "fox" count as the same feature. Empty text hashes to 0.
func Fingerprint(text string) uint64 {
	return fingerprintTokens(normalize(text))
}

func fingerprintTokens(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var votes [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := range votes {
			if sum&(1<<uint(i)) != 0 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var fp uint64
	for i, v := range votes {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

func normalize(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(strings.ToLower(f), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Similarity expresses the shared bits of two fingerprints as a percentage
// rounded to two decimals.
func Similarity(a, b uint64) float64 {
	return math.Round(float64(64-Distance(a, b))/64*100*100) / 100
}
