package explorer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
	"github.com/jwalker/zdi-advisory-explorer/explorer"
)

func testAdvisories() []advisory.Advisory {
	return []advisory.Advisory{
		{Title: "Heap Overflow in X", PublicAdvisory: "remote code execution", Year: 2022},
		{Title: "Use-After-Free in Y", PublicAdvisory: "privilege escalation", Year: 2022},
		{Title: "SQL Injection in Z", PublicAdvisory: "heap metadata corruption", PublishedDate: "2023-03-01"},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		query      explorer.Query
		wantTitles []string
	}{
		{
			name:       "empty year set yields nothing regardless of keyword",
			query:      explorer.Query{Keyword: "heap"},
			wantTitles: nil,
		},
		{
			name:       "years only",
			query:      explorer.Query{Years: []int{2022}},
			wantTitles: []string{"Heap Overflow in X", "Use-After-Free in Y"},
		},
		{
			name:       "keyword matches title case-insensitively",
			query:      explorer.Query{Years: []int{2022}, Keyword: "heap"},
			wantTitles: []string{"Heap Overflow in X"},
		},
		{
			name:       "keyword matches advisory text",
			query:      explorer.Query{Years: []int{2022, 2023}, Keyword: "metadata"},
			wantTitles: []string{"SQL Injection in Z"},
		},
		{
			name:       "year derived from published date",
			query:      explorer.Query{Years: []int{2023}},
			wantTitles: []string{"SQL Injection in Z"},
		},
		{
			name:       "no match",
			query:      explorer.Query{Years: []int{2022}, Keyword: "kernel"},
			wantTitles: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explorer.Filter(testAdvisories(), tt.query)

			var titles []string
			for _, a := range got {
				titles = append(titles, a.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
		})
	}
}

func TestCountByYear(t *testing.T) {
	counts := explorer.CountByYear(testAdvisories())
	assert.Equal(t, map[int]int{2022: 2, 2023: 1}, counts)
}

func TestMeanCVSS(t *testing.T) {
	high := 9.8
	low := 3.2

	advisories := []advisory.Advisory{
		{CVSSScore: &high},
		{}, // unscored, excluded from the reduction
		{CVSSScore: &low},
	}
	assert.InDelta(t, 6.5, explorer.MeanCVSS(advisories), 0.0001)

	assert.True(t, math.IsNaN(explorer.MeanCVSS(nil)))
	assert.True(t, math.IsNaN(explorer.MeanCVSS([]advisory.Advisory{{}})))
}

func TestViews(t *testing.T) {
	advisories := []advisory.Advisory{
		{
			Title:    "Heap Overflow in X",
			Products: []advisory.Product{{Name: "Foo"}, {Name: "Bar"}},
			CVEs:     []string{"CVE-2022-0001"},
		},
	}
	views := explorer.Views(advisories)

	assert.Len(t, views, 1)
	assert.Equal(t, "Foo, Bar", views[0].ProductNames)
	assert.Equal(t, "[CVE-2022-0001](https://www.cve.org/CVERecord?id=CVE-2022-0001)", views[0].CVELinks)
}
