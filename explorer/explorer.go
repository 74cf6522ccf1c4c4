package explorer

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
)

// Query is a set of user-supplied predicates. An empty year set matches
// nothing; an empty keyword matches everything.
type Query struct {
	Years   []int
	Keyword string
}

// Filter returns the advisories matching the query: the year must be in the
// accepted set, and the keyword, when given, must appear case-insensitively
// in the title or the public advisory text.
func Filter(advisories []advisory.Advisory, q Query) []advisory.Advisory {
	if len(q.Years) == 0 {
		return nil
	}
	years := lo.SliceToMap(q.Years, func(y int) (int, struct{}) {
		return y, struct{}{}
	})
	keyword := strings.ToLower(q.Keyword)

	return lo.Filter(advisories, func(a advisory.Advisory, _ int) bool {
		if _, ok := years[a.ResolveYear()]; !ok {
			return false
		}
		if keyword == "" {
			return true
		}
		return strings.Contains(strings.ToLower(a.Title), keyword) ||
			strings.Contains(strings.ToLower(a.PublicAdvisory), keyword)
	})
}

// CountByYear groups advisories by resolved year, the aggregate behind the
// per-year bar and pie charts.
func CountByYear(advisories []advisory.Advisory) map[int]int {
	return lo.CountValuesBy(advisories, func(a advisory.Advisory) int {
		return a.ResolveYear()
	})
}

// MeanCVSS averages the scores that are present. Advisories without a score
// are excluded from the reduction; NaN when nothing is scored.
func MeanCVSS(advisories []advisory.Advisory) float64 {
	scores := lo.FilterMap(advisories, func(a advisory.Advisory, _ int) (float64, bool) {
		return lo.FromPtrOr(a.CVSSScore, 0), a.CVSSScore != nil
	})
	if len(scores) == 0 {
		return math.NaN()
	}
	return lo.Sum(scores) / float64(len(scores))
}

// Views flattens advisories into their display projections.
func Views(advisories []advisory.Advisory) []advisory.View {
	return lo.Map(advisories, func(a advisory.Advisory, _ int) advisory.View {
		return advisory.Flatten(a)
	})
}
