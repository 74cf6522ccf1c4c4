package rss

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/afero"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
	"github.com/jwalker/zdi-advisory-explorer/utils"
)

const (
	feedURLBase = "https://www.zerodayinitiative.com/rss/published"
	rssDir      = "rss"
	retry       = 3

	defaultFromYear = 2005
	defaultToYear   = 2025 // exclusive, bump yearly
)

// Writer persists one normalized advisory. The RSS feed has no stable
// identifier, so rows are appended unconditionally and a rerun against the
// same database duplicates them.
type Writer interface {
	Insert(advisory.Advisory) error
}

type Option func(u *Updater)

func WithBaseURL(v *url.URL) Option {
	return func(u *Updater) { u.baseURL = v }
}

func WithYears(from, to int) Option {
	return func(u *Updater) { u.fromYear, u.toYear = from, to }
}

func WithRetry(r int) Option {
	return func(u *Updater) { u.retry = r }
}

func WithAppFs(v afero.Fs) Option {
	return func(u *Updater) { u.appFs = v }
}

func WithArchiveDir(v string) Option {
	return func(u *Updater) { u.archiveDir = v }
}

type Updater struct {
	writer     Writer
	baseURL    *url.URL
	fromYear   int
	toYear     int
	retry      int
	appFs      afero.Fs
	archiveDir string
}

func NewUpdater(writer Writer, options ...Option) *Updater {
	u, _ := url.Parse(feedURLBase)
	updater := &Updater{
		writer:     writer,
		baseURL:    u,
		fromYear:   defaultFromYear,
		toYear:     defaultToYear,
		retry:      retry,
		appFs:      afero.NewOsFs(),
		archiveDir: utils.CacheDir(),
	}
	for _, option := range options {
		option(updater)
	}
	return updater
}

// Update walks the yearly feeds in order. A year that fails to fetch or
// parse contributes zero entries and the walk continues; the feed does not
// distinguish an empty year from a broken one.
func (u *Updater) Update() error {
	for year := u.fromYear; year < u.toYear; year++ {
		log.Printf("Fetching ZDI advisories of %d ...", year)
		items := u.fetchYear(year)
		if len(items) == 0 {
			continue
		}

		bar := pb.StartNew(len(items))
		for _, item := range items {
			if err := u.writer.Insert(advisory.FromFeedItem(item, year)); err != nil {
				return err
			}
			bar.Increment()
		}
		bar.Finish()
	}
	return nil
}

func (u *Updater) fetchYear(year int) []advisory.FeedItem {
	feedURL := u.baseURL.JoinPath(strconv.Itoa(year)) // trailing slash dropped by the server redirect
	body, err := utils.FetchURL(feedURL.String(), "", u.retry)
	if err != nil {
		log.Printf("failed to fetch ZDI feed for %d: %s", year, err)
		return nil
	}

	if err := u.archive(year, body); err != nil {
		log.Printf("failed to archive ZDI feed for %d: %s", year, err)
	}

	var doc feed
	if err := xml.Unmarshal(body, &doc); err != nil {
		log.Printf("failed to parse ZDI feed for %d: %s", year, err)
		return nil
	}

	items := make([]advisory.FeedItem, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		items = append(items, advisory.FeedItem{
			Title:     utils.TrimSpaceNewline(item.Title),
			Link:      utils.TrimSpaceNewline(item.Link),
			Published: utils.TrimSpaceNewline(item.PubDate),
			Summary:   item.Description,
		})
	}
	return items
}

func (u *Updater) archive(year int, body []byte) error {
	fs := utils.NewFs(u.appFs)
	path := filepath.Join(u.archiveDir, rssDir, fmt.Sprintf("%d.xml", year))
	return fs.WriteRaw(path, body)
}

type feed struct {
	Channel struct {
		Items []feedEntry `xml:"item"`
	} `xml:"channel"`
}

type feedEntry struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}
