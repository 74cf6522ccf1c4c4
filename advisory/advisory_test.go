package advisory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
)

func TestDecodeMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "truncated json", raw: `[{"name": "Foo"`},
		{name: "wrong shape", raw: `{"name": "Foo"}`},
		{name: "not json at all", raw: "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, advisory.DecodeProducts(tt.raw))
			assert.Empty(t, advisory.DecodeResponses(tt.raw))
			assert.Empty(t, advisory.DecodeDiscoverers(tt.raw))
			assert.Empty(t, advisory.DecodeCVEs(tt.raw))
		})
	}
}

func TestDecodeValidPayloads(t *testing.T) {
	products := advisory.DecodeProducts(`[{"name": "Foo"}, {"name": "Bar"}]`)
	assert.Equal(t, []advisory.Product{{Name: "Foo"}, {Name: "Bar"}}, products)

	responses := advisory.DecodeResponses(`[{"text": "fixed", "vendor": {"name": "Acme"}, "uri": "https://acme.example/patch"}]`)
	assert.Equal(t, []advisory.Response{
		{Text: "fixed", Vendor: &advisory.Vendor{Name: "Acme"}, URI: "https://acme.example/patch"},
	}, responses)

	assert.Equal(t, []string{"anonymous"}, advisory.DecodeDiscoverers(`["anonymous"]`))
	assert.Equal(t, []string{"CVE-2023-1111", "CVE-2023-2222"}, advisory.DecodeCVEs(`["CVE-2023-1111", "CVE-2023-2222"]`))
}

func TestFromFeedItem(t *testing.T) {
	item := advisory.FeedItem{
		Title:     "Heap Overflow in X",
		Link:      "https://www.zerodayinitiative.com/advisories/ZDI-22-100/",
		Published: "Tue, 01 Feb 2022 00:00:00 GMT",
		Summary:   "A heap overflow was found.",
	}
	a := advisory.FromFeedItem(item, 2022)

	assert.Equal(t, "Heap Overflow in X", a.Title)
	assert.Equal(t, "A heap overflow was found.", a.PublicAdvisory)
	assert.Equal(t, 2022, a.Year)
	assert.False(t, a.HasNaturalKey())
}

func TestResolveYear(t *testing.T) {
	tests := []struct {
		name string
		a    advisory.Advisory
		want int
	}{
		{
			name: "year column wins",
			a:    advisory.Advisory{Year: 2019, PublishedDate: "2020-05-01"},
			want: 2019,
		},
		{
			name: "iso date prefix",
			a:    advisory.Advisory{PublishedDate: "2022-11-30"},
			want: 2022,
		},
		{
			name: "rfc1123 feed date",
			a:    advisory.Advisory{PublishedDate: "Tue, 01 Feb 2022 00:00:00 GMT"},
			want: 2022,
		},
		{
			name: "unparseable date",
			a:    advisory.Advisory{PublishedDate: "n/a"},
			want: 0,
		},
		{
			name: "empty",
			a:    advisory.Advisory{},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.ResolveYear())
		})
	}
}
