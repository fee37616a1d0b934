package relevance

import (
	"strings"

	"github.com/spigell/hh-matcher/internal/textnorm"
)

// DefaultPenaltyPoints is deducted once per distinct excluded keyword found.
const DefaultPenaltyPoints = 10

// Penalty checks every keyword against text, a normalized job document, with
// a case-insensitive substring test: "sql" hits "mysql". Each distinct keyword
// counts once no matter how often it occurs. Blank keywords are ignored.
// It returns the total deduction and the matched keywords in input order.
// Keywords keep their punctuation while text does not, so "c#" or "node.js"
// never match.
func Penalty(keywords []string, text string, points int) (int, []string) {
	seen := make(map[string]struct{}, len(keywords))
	var matched []string

	for _, keyword := range keywords {
		needle := strings.TrimSpace(textnorm.Lower(keyword))
		if needle == "" {
			continue
		}
		if _, ok := seen[needle]; ok {
			continue
		}
		seen[needle] = struct{}{}

		if strings.Contains(text, needle) {
			matched = append(matched, keyword)
		}
	}

	return points * len(matched), matched
}
