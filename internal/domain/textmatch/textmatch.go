// Package textmatch provides the string primitives behind fuzzy
// order-reference matching: identifier normalization, Levenshtein
// distance, and a normalized similarity score.
//
// Platform-reported references arrive with unpredictable formatting
// (dashes, spaces, mixed case, truncation), so every comparison in the
// reconciliation engine goes through Normalize first.
package textmatch

import "strings"

// Normalize canonicalizes an order reference for comparison.
// It lower-cases the input and strips everything outside [a-z0-9],
// so "ORD-1001", "ord 1001" and "Ord1001" all compare equal.
// An empty result means the reference carries no usable content.
func Normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Levenshtein calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one
// string into another.
//
// Full (m+1) x (n+1) dynamic-programming table, unit cost per edit.
// References are short (typically under 40 characters), so clarity
// wins over the two-row memory trick.
func Levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			// Minimum of deletion, insertion, substitution
			d[i][j] = min(d[i-1][j]+1, min(d[i][j-1]+1, d[i-1][j-1]+cost))
		}
	}

	return d[len(a)][len(b)]
}

// Similarity returns a normalized similarity score between two order
// references, from 0.0 (completely different) to 1.0 (identical after
// normalization).
//
// Both inputs are normalized before comparison. The score is
// 1 - distance/max(len(a), len(b)) over the normalized strings,
// clamped to [0, 1]. Either side normalizing to empty scores 0.
func Similarity(a, b string) float64 {
	normA := Normalize(a)
	normB := Normalize(b)

	if normA == normB {
		if normA == "" {
			return 0
		}
		return 1.0
	}
	if normA == "" || normB == "" {
		return 0
	}

	maxLen := max(len(normA), len(normB))
	distance := Levenshtein(normA, normB)

	score := 1.0 - float64(distance)/float64(maxLen)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
