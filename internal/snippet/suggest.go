package snippet

import (
	"sort"
	"strings"
)

// closeMatchCutoff is the minimum similarity for a name to be suggested.
const closeMatchCutoff = 0.6

// maxSuggestions caps how many close matches are returned.
const maxSuggestions = 3

// ClosestMatches returns up to three candidates similar to name, most
// similar first. An exact match scores highest.
func ClosestMatches(name string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
		idx   int
	}

	lower := strings.ToLower(name)
	var matches []scored
	for i, c := range candidates {
		if score := similarity(lower, strings.ToLower(c)); score >= closeMatchCutoff {
			matches = append(matches, scored{name: c, score: score, idx: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].idx < matches[j].idx
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// similarity maps edit distance onto [0, 1].
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
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
	return prev[len(s2)]
}
