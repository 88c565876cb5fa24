package scoring

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// legalFormStopwords are Indonesian company legal-form markers that carry
// no identity information. "PT MAJU JAYA" and "MAJU JAYA" name the same
// entity.
var legalFormStopwords = map[string]bool{
	"pt":       true,
	"cv":       true,
	"tbk":      true,
	"persero":  true,
	"ud":       true,
	"firma":    true,
	"koperasi": true,
}

// normalizeVendorName lowercases the name, strips punctuation, removes
// legal-form stopwords and sorts the remaining tokens so word order never
// affects similarity.
func normalizeVendorName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if !legalFormStopwords[tok] {
			kept = append(kept, tok)
		}
	}

	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// VendorSimilarity returns a similarity in [0,1] between two company
// names: 1 for identical canonical forms, decreasing with edit distance.
// Two empty canonical names score zero, not one; absent evidence is not
// agreement.
func VendorSimilarity(a, b string) float64 {
	na := normalizeVendorName(a)
	nb := normalizeVendorName(b)

	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return 1
	}

	// the distance counts rune edits, so the scale must too
	maxLen := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > maxLen {
		maxLen = n
	}

	dist := levenshtein(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
