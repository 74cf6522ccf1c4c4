package main

import (
	"flag"
	"log"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/jwalker/zdi-advisory-explorer/rss"
	"github.com/jwalker/zdi-advisory-explorer/storage"
	"github.com/jwalker/zdi-advisory-explorer/utils"
	"github.com/jwalker/zdi-advisory-explorer/zdi"
)

const defaultDBPath = "zdi_advisories.db"

var (
	target = flag.String("target", "", "ingestion target (rss, api)")
	years  = flag.String("years", "", "year range as from,to with to exclusive (e.g. 2005,2025)")
	dbPath = flag.String("db", "", "path to the SQLite database")
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()

	path := *dbPath
	if path == "" {
		path = utils.LookupEnv("ZDI_DB_PATH", defaultDBPath)
	}
	store, err := storage.New(path)
	if err != nil {
		return xerrors.Errorf("failed to open advisory store: %w", err)
	}
	defer store.Close()

	fromYear, toYear, err := parseYears(*years)
	if err != nil {
		return err
	}

	switch *target {
	case "rss":
		options := []rss.Option{}
		if feedURL := utils.LookupEnv("ZDI_FEED_URL", ""); feedURL != "" {
			u, err := url.Parse(feedURL)
			if err != nil {
				return xerrors.Errorf("invalid ZDI_FEED_URL: %w", err)
			}
			options = append(options, rss.WithBaseURL(u))
		}
		if fromYear != 0 {
			options = append(options, rss.WithYears(fromYear, toYear))
		}
		if err := rss.NewUpdater(store, options...).Update(); err != nil {
			return xerrors.Errorf("error in RSS update: %w", err)
		}
	case "api":
		options := []zdi.Option{}
		if apiURL := utils.LookupEnv("ZDI_API_URL", ""); apiURL != "" {
			u, err := url.Parse(apiURL)
			if err != nil {
				return xerrors.Errorf("invalid ZDI_API_URL: %w", err)
			}
			options = append(options, zdi.WithBaseURL(u))
		}
		if fromYear != 0 {
			options = append(options, zdi.WithYears(fromYear, toYear))
		}
		if err := zdi.NewUpdater(store, options...).Update(); err != nil {
			return xerrors.Errorf("error in ZDI API update: %w", err)
		}
	default:
		return xerrors.New("target must be rss or api")
	}
	return nil
}

func parseYears(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, xerrors.Errorf("invalid years %q, expected from,to", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, xerrors.Errorf("invalid years: %w", err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, xerrors.Errorf("invalid years: %w", err)
	}
	if from >= to {
		return 0, 0, xerrors.Errorf("invalid years %q, from must precede to", s)
	}
	return from, to, nil
}
