package advisory

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/araddon/dateparse"
)

// Advisory is the canonical shape shared by both feed sources. RSS entries
// only carry the scalar fields and a year; the JSON API additionally carries
// the natural key and the nested lists.
type Advisory struct {
	ZDIPublic      string     `json:"zdi_public"`
	ZDICan         string     `json:"zdi_can"`
	Title          string     `json:"title"`
	Link           string     `json:"link"`
	PublicAdvisory string     `json:"public_advisory"`
	Products       []Product  `json:"products"`
	Responses      []Response `json:"responses"`
	Discoverers    []string   `json:"discoverers"`
	CVSSVersion    string     `json:"cvss_version"`
	CVSSScore      *float64   `json:"cvss_score"`
	CVSSVector     string     `json:"cvss_vector"`
	CVEs           []string   `json:"cves"`
	PublishedDate  string     `json:"published_date"`
	Year           int        `json:"year,omitempty"`
}

type Product struct {
	Name string `json:"name"`
}

type Response struct {
	Text   string  `json:"text,omitempty"`
	Vendor *Vendor `json:"vendor,omitempty"`
	URI    string  `json:"uri,omitempty"`
}

type Vendor struct {
	Name string `json:"name"`
}

// FeedItem is one raw entry from a yearly RSS feed.
type FeedItem struct {
	Title     string
	Link      string
	Published string
	Summary   string
}

// FromFeedItem maps an RSS entry to the canonical shape. RSS entries have no
// stable identifier, so the natural key stays empty.
func FromFeedItem(item FeedItem, year int) Advisory {
	return Advisory{
		Title:          item.Title,
		Link:           item.Link,
		PublicAdvisory: item.Summary,
		PublishedDate:  item.Published,
		Year:           year,
	}
}

// ResolveYear returns the year column when set, otherwise derives it from
// the published date. The JSON API schema has no year column, so the date
// prefix is authoritative there.
func (a Advisory) ResolveYear() int {
	if a.Year != 0 {
		return a.Year
	}
	if len(a.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(a.PublishedDate[:4]); err == nil {
			return year
		}
	}
	if t, err := dateparse.ParseAny(a.PublishedDate); err == nil {
		return t.Year()
	}
	return 0
}

// HasNaturalKey reports whether the advisory carries the identifier pair the
// store deduplicates on.
func (a Advisory) HasNaturalKey() bool {
	return a.ZDIPublic != "" || a.ZDICan != ""
}

// DecodeProducts parses a serialized product list read back from the store.
// A malformed payload yields an empty list; one bad record must not abort a
// whole batch.
func DecodeProducts(raw string) []Product {
	var products []Product
	if err := decodeList(raw, &products); err != nil {
		log.Printf("undecodable products payload %q: %s", raw, err)
		return nil
	}
	return products
}

// DecodeResponses parses a serialized response list, empty on malformed input.
func DecodeResponses(raw string) []Response {
	var responses []Response
	if err := decodeList(raw, &responses); err != nil {
		log.Printf("undecodable responses payload %q: %s", raw, err)
		return nil
	}
	return responses
}

// DecodeDiscoverers parses a serialized discoverer list, empty on malformed input.
func DecodeDiscoverers(raw string) []string {
	var discoverers []string
	if err := decodeList(raw, &discoverers); err != nil {
		log.Printf("undecodable discoverers payload %q: %s", raw, err)
		return nil
	}
	return discoverers
}

// DecodeCVEs parses a serialized CVE identifier list, empty on malformed input.
func DecodeCVEs(raw string) []string {
	var cves []string
	if err := decodeList(raw, &cves); err != nil {
		log.Printf("undecodable cves payload %q: %s", raw, err)
		return nil
	}
	return cves
}

func decodeList(raw string, v interface{}) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
