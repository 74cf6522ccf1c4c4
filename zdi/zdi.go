package zdi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"golang.org/x/xerrors"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
	"github.com/jwalker/zdi-advisory-explorer/utils"
)

const (
	apiURLBase = "https://www.zerodayinitiative.com/api/advisories/published/"
	apiDir     = "api"

	defaultFromYear = 2005
	defaultToYear   = 2025 // exclusive, bump yearly

	// The API rate-limits aggressively. One request per second keeps 429s
	// rare; a 429 still sleeps the full interval and repeats the request.
	requestsPerSecond    = 1
	defaultRetryInterval = 30 * time.Second
)

// Writer persists one normalized advisory keyed by its identifier pair, so
// re-running ingestion replaces rows instead of duplicating them.
type Writer interface {
	Upsert(advisory.Advisory) error
}

type Option func(u *Updater)

func WithBaseURL(v *url.URL) Option {
	return func(u *Updater) { u.baseURL = v }
}

func WithYears(from, to int) Option {
	return func(u *Updater) { u.fromYear, u.toYear = from, to }
}

func WithRetryInterval(d time.Duration) Option {
	return func(u *Updater) { u.retryInterval = d }
}

// WithMaxRetries caps consecutive 429 retries of a single request. Zero
// keeps retrying until the request goes through or the process is killed.
func WithMaxRetries(n int) Option {
	return func(u *Updater) { u.maxRetries = n }
}

// WithRateLimit overrides the request pacing towards the API.
func WithRateLimit(limit rate.Limit) Option {
	return func(u *Updater) { u.limiter = rate.NewLimiter(limit, 1) }
}

func WithAppFs(v afero.Fs) Option {
	return func(u *Updater) { u.appFs = v }
}

func WithArchiveDir(v string) Option {
	return func(u *Updater) { u.archiveDir = v }
}

type Updater struct {
	writer        Writer
	baseURL       *url.URL
	fromYear      int
	toYear        int
	retryInterval time.Duration
	maxRetries    int
	limiter       *rate.Limiter
	client        *http.Client
	appFs         afero.Fs
	archiveDir    string
}

func NewUpdater(writer Writer, options ...Option) *Updater {
	u, _ := url.Parse(apiURLBase)
	updater := &Updater{
		writer:        writer,
		baseURL:       u,
		fromYear:      defaultFromYear,
		toYear:        defaultToYear,
		retryInterval: defaultRetryInterval,
		limiter:       rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), 1),
		client:        &http.Client{},
		appFs:         afero.NewOsFs(),
		archiveDir:    utils.CacheDir(),
	}
	for _, option := range options {
		option(updater)
	}
	return updater
}

// page is one response of the paginated advisory listing.
type page struct {
	// pointer so an absent results key can be told apart from an empty page
	Results *[]advisory.Advisory `json:"results"`
	Next    string               `json:"next"`
}

// Update walks the yearly listings sequentially, following each year's
// pagination cursor in server order. A bad response abandons the year and
// moves on; ingestion never aborts the whole run for one year.
func (u *Updater) Update() error {
	for year := u.fromYear; year < u.toYear; year++ {
		log.Printf("Fetching ZDI advisories of %d ...", year)
		if err := u.updateYear(year); err != nil {
			return xerrors.Errorf("failed to update ZDI advisories of %d: %w", year, err)
		}
	}
	return nil
}

func (u *Updater) updateYear(year int) error {
	pageURL := u.baseURL.String() + "?year=" + strconv.Itoa(year)
	for pageNum := 1; pageURL != ""; pageNum++ {
		body, ok, err := u.fetchPage(pageURL)
		if err != nil {
			return err
		}
		if !ok {
			// logged by fetchPage, move on to the next year
			return nil
		}

		if err := u.archive(year, pageNum, body); err != nil {
			log.Printf("failed to archive page %d of %d: %s", pageNum, year, err)
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			log.Printf("failed to parse page for year %d, url %s: %s", year, pageURL, err)
			return nil
		}
		if p.Results == nil {
			log.Printf("no results found in the response for year %d, url %s: %s", year, pageURL, string(body))
			return nil
		}

		for _, a := range *p.Results {
			if err := u.writer.Upsert(a); err != nil {
				return err
			}
		}
		pageURL = p.Next
	}
	return nil
}

// fetchPage retrieves one page, waiting out rate limits. A 429 sleeps the
// retry interval and repeats the same request; any other failure status is
// logged with its body and reported as not-ok so the caller abandons the
// year.
func (u *Updater) fetchPage(pageURL string) ([]byte, bool, error) {
	for attempt := 0; ; attempt++ {
		if err := u.limiter.Wait(context.Background()); err != nil {
			return nil, false, xerrors.Errorf("rate limiter wait: %w", err)
		}

		resp, err := u.client.Get(pageURL)
		if err != nil {
			return nil, false, xerrors.Errorf("HTTP error. url: %s, err: %w", pageURL, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, false, xerrors.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if u.maxRetries > 0 && attempt >= u.maxRetries {
				return nil, false, xerrors.Errorf("rate limited %d times in a row, url: %s", attempt, pageURL)
			}
			log.Printf("Rate limited. Retrying in %s ...", u.retryInterval)
			time.Sleep(u.retryInterval)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("failed to fetch %s, status code: %d, response: %s", pageURL, resp.StatusCode, string(body))
			return nil, false, nil
		}
		return body, true, nil
	}
}

func (u *Updater) archive(year, pageNum int, body []byte) error {
	fs := utils.NewFs(u.appFs)
	path := filepath.Join(u.archiveDir, apiDir, strconv.Itoa(year), fmt.Sprintf("page%d.json", pageNum))
	return fs.WriteRaw(path, body)
}
