package relevance

import (
	"math"
	"sort"
)

// DefaultMinScore is the lowest final score kept in a ranking.
const DefaultMinScore = 1.0

// Finalize subtracts the penalty from the raw score, clamping at zero.
func Finalize(raw float64, penalty int) float64 {
	return roundScore(math.Max(0, raw-float64(penalty)))
}

// SortByScore orders postings by descending score. Ties keep their
// relative order.
func SortByScore(postings []ScoredPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].RelevanceScore > postings[j].RelevanceScore
	})
}
