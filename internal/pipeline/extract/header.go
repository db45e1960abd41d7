package extract

import "strings"

// RowPredicate is a pure test over one grid row.
type RowPredicate func(cells []string) bool

// Keywords that mark a header row.
var (
	PipelineHeaderKeywords   = []string{"deal name", "deal stage", "total amount", "deal owner", "quarter to close", "probability"}
	AssignmentHeaderKeywords = []string{"company", "account", "name", "website", "industry"}
)

// MinNonEmpty holds when at least n cells carry text.
func MinNonEmpty(n int) RowPredicate {
	return func(cells []string) bool {
		count := 0
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				count++
			}
		}
		return count >= n
	}
}

// MentionsAny holds when the lowercased row text contains one of keywords.
func MentionsAny(keywords ...string) RowPredicate {
	return func(cells []string) bool {
		joined := strings.ToLower(strings.Join(cells, " "))
		for _, k := range keywords {
			if strings.Contains(joined, k) {
				return true
			}
		}
		return false
	}
}

// HeaderRule is the conjunction of its predicates.
type HeaderRule []RowPredicate

func (r HeaderRule) Match(cells []string) bool {
	for _, p := range r {
		if !p(cells) {
			return false
		}
	}
	return true
}

// DetectHeaderRow returns the first of the leading scanDepth rows that any
// rule accepts, trying rules in order. Row 0 is the fallback.
func DetectHeaderRow(rows [][]string, scanDepth int, rules ...HeaderRule) int {
	limit := scanDepth
	if len(rows) < limit {
		limit = len(rows)
	}
	for _, rule := range rules {
		for i := 0; i < limit; i++ {
			if rule.Match(rows[i]) {
				return i
			}
		}
	}
	return 0
}
