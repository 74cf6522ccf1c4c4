package storage

import (
	"database/sql"
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/jwalker/zdi-advisory-explorer/advisory"
)

// Store persists canonical advisories in a local SQLite database. One
// connection per run; concurrent writers are not supported.
type Store struct {
	db *sql.DB
}

// Both feed schemas live in one table with nullable columns. RSS rows have
// an empty natural key and are excluded from the unique index, so repeated
// RSS ingestion appends duplicate rows. That matches the feed's lack of a
// stable identifier and is asserted by a regression test.
const schema = `
CREATE TABLE IF NOT EXISTS advisories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	zdi_public TEXT NOT NULL DEFAULT '',
	zdi_can TEXT NOT NULL DEFAULT '',
	title TEXT,
	link TEXT,
	public_advisory TEXT,
	products TEXT,
	responses TEXT,
	discoverers TEXT,
	cvss_version TEXT,
	cvss_score REAL,
	cvss_vector TEXT,
	cves TEXT,
	published_date TEXT,
	year INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS advisories_natural_key
	ON advisories (zdi_public, zdi_can)
	WHERE zdi_public != '' OR zdi_can != '';
`

// New opens the database at path and creates the schema if absent. Schema
// errors are fatal to the run; every later step depends on the store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, xerrors.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes an advisory keyed by its identifier pair with replace
// semantics. Re-ingesting the same page is idempotent; the newest field
// values win.
func (s *Store) Upsert(a advisory.Advisory) error {
	args, err := writeArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO advisories
		(zdi_public, zdi_can, title, link, public_advisory, products, responses,
		 discoverers, cvss_version, cvss_score, cvss_vector, cves, published_date, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return xerrors.Errorf("failed to upsert advisory %s/%s: %w", a.ZDIPublic, a.ZDICan, err)
	}
	return nil
}

// Insert appends an advisory under a fresh surrogate key. Used by the RSS
// path, which has no natural key to deduplicate on.
func (s *Store) Insert(a advisory.Advisory) error {
	args, err := writeArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO advisories
		(zdi_public, zdi_can, title, link, public_advisory, products, responses,
		 discoverers, cvss_version, cvss_score, cvss_vector, cves, published_date, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return xerrors.Errorf("failed to insert advisory %q: %w", a.Title, err)
	}
	return nil
}

func writeArgs(a advisory.Advisory) ([]interface{}, error) {
	products, err := encodeList(a.Products)
	if err != nil {
		return nil, err
	}
	responses, err := encodeList(a.Responses)
	if err != nil {
		return nil, err
	}
	discoverers, err := encodeList(a.Discoverers)
	if err != nil {
		return nil, err
	}
	cves, err := encodeList(a.CVEs)
	if err != nil {
		return nil, err
	}

	var score sql.NullFloat64
	if a.CVSSScore != nil {
		score = sql.NullFloat64{Float64: *a.CVSSScore, Valid: true}
	}
	var year sql.NullInt64
	if a.Year != 0 {
		year = sql.NullInt64{Int64: int64(a.Year), Valid: true}
	}

	return []interface{}{
		a.ZDIPublic, a.ZDICan, a.Title, a.Link, a.PublicAdvisory,
		products, responses, discoverers,
		a.CVSSVersion, score, a.CVSSVector, cves, a.PublishedDate, year,
	}, nil
}

func encodeList(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", xerrors.Errorf("failed to encode nested list: %w", err)
	}
	return string(b), nil
}

// SelectByYears loads advisories whose year falls in the given set. RSS rows
// match on the year column, API rows on the published-date prefix; both go
// through bound parameters. An empty set means zero rows.
func (s *Store) SelectByYears(years []int) ([]advisory.Advisory, error) {
	if len(years) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(years))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(years)*2)
	for _, y := range years {
		args = append(args, y)
	}
	for _, y := range years {
		args = append(args, y)
	}

	query := selectColumns + ` FROM advisories
		WHERE year IN (` + placeholders + `)
		   OR (year IS NULL AND CAST(substr(published_date, 1, 4) AS INTEGER) IN (` + placeholders + `))
		ORDER BY id`
	return s.selectAdvisories(query, args...)
}

// SelectAll loads the whole table in insertion order.
func (s *Store) SelectAll() ([]advisory.Advisory, error) {
	return s.selectAdvisories(selectColumns + " FROM advisories ORDER BY id")
}

const selectColumns = `SELECT zdi_public, zdi_can, title, link, public_advisory,
	products, responses, discoverers, cvss_version, cvss_score, cvss_vector,
	cves, published_date, year`

func (s *Store) selectAdvisories(query string, args ...interface{}) ([]advisory.Advisory, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, xerrors.Errorf("failed to query advisories: %w", err)
	}
	defer rows.Close()

	var advisories []advisory.Advisory
	for rows.Next() {
		var a advisory.Advisory
		var title, link, publicAdvisory, products, responses, discoverers, cvssVersion, cvssVector, cves, publishedDate sql.NullString
		var score sql.NullFloat64
		var year sql.NullInt64
		if err := rows.Scan(&a.ZDIPublic, &a.ZDICan, &title, &link, &publicAdvisory,
			&products, &responses, &discoverers, &cvssVersion, &score, &cvssVector,
			&cves, &publishedDate, &year); err != nil {
			return nil, xerrors.Errorf("failed to scan advisory row: %w", err)
		}
		a.Title = title.String
		a.Link = link.String
		a.PublicAdvisory = publicAdvisory.String
		a.CVSSVersion = cvssVersion.String
		a.CVSSVector = cvssVector.String
		a.PublishedDate = publishedDate.String
		if score.Valid {
			v := score.Float64
			a.CVSSScore = &v
		}
		if year.Valid {
			a.Year = int(year.Int64)
		}
		a.Products = advisory.DecodeProducts(products.String)
		a.Responses = advisory.DecodeResponses(responses.String)
		a.Discoverers = advisory.DecodeDiscoverers(discoverers.String)
		a.CVEs = advisory.DecodeCVEs(cves.String)
		advisories = append(advisories, a)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("failed to iterate advisory rows: %w", err)
	}
	return advisories, nil
}
