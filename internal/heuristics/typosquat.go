package heuristics

import (
	"strings"
)

// maxTypoDistance is the largest edit distance still treated as a near miss
const maxTypoDistance = 2

var brandSuffixes = []string{"login", "secure", "support", "oficial"}

// lookalikes are single-character swaps applied to the first occurrence
var lookalikes = []struct{ from, to string }{
	{"o", "0"},
	{"i", "1"},
	{"l", "1"},
	{"e", "3"},
}

// TyposquatTarget returns the brand the label imitates, or an empty string.
// A label that is itself one of the brands never matches.
func TyposquatTarget(label string, brands []string) string {
	if label == "" {
		return ""
	}
	for _, brand := range brands {
		if label == brand {
			return ""
		}
	}

	for _, brand := range brands {
		if d := levenshteinDistance(label, brand); d >= 1 && d <= maxTypoDistance {
			return brand
		}
		for _, variant := range obfuscatedVariants(brand) {
			if label == variant {
				return brand
			}
		}
	}
	return ""
}

func obfuscatedVariants(brand string) []string {
	variants := make([]string, 0, len(lookalikes)+len(brandSuffixes)+1)
	for _, l := range lookalikes {
		if v := strings.Replace(brand, l.from, l.to, 1); v != brand {
			variants = append(variants, v)
		}
	}
	for _, suffix := range brandSuffixes {
		variants = append(variants, brand+suffix)
	}
	return append(variants, "my"+brand)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
