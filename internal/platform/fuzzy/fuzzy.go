// Package fuzzy provides normalized 0-100 string similarity scorers.
package fuzzy

import "fmt"

// Scorer returns the similarity of a and b on a 0-100 scale.
type Scorer func(a, b string) float64

const (
	ScorerIndel       = "indel"
	ScorerLevenshtein = "levenshtein"
)

// ByName resolves a configured scorer name. An empty name selects IndelRatio.
func ByName(name string) (Scorer, error) {
	switch name {
	case "", ScorerIndel:
		return IndelRatio, nil
	case ScorerLevenshtein:
		return LevenshteinRatio, nil
	default:
		return nil, fmt.Errorf("unknown scorer: %s", name)
	}
}

// IndelRatio is the normalized InDel similarity:
// 100 * (1 - indel(a, b) / (len(a) + len(b))), where the InDel distance only
// counts insertions and deletions. Lengths are measured in runes.
// Two empty strings are identical and score 100.
func IndelRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	lcs := longestCommonSubsequence(ra, rb)
	return 100 * float64(2*lcs) / float64(total)
}

// LevenshteinRatio scores 100 * (1 - distance / max(len(a), len(b))).
func LevenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	return 100 * (1 - float64(LevenshteinDistance(a, b))/float64(longest))
}

// LevenshteinDistance calculates the minimum number of single-rune edits
// (insertions, deletions, or substitutions) required to change a into b.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// longestCommonSubsequence uses the same two-row table as LevenshteinDistance.
func longestCommonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		curr[0] = 0
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
