package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/config"
	"github.com/pfrederiksen/cfp-search/internal/logger"
	"github.com/pfrederiksen/cfp-search/internal/metrics"
)

// Scraper searches WikiCFP and enriches listing records from detail pages.
// A Scraper holds no per-search state and is safe for concurrent use.
type Scraper struct {
	client       *http.Client
	baseURL      string
	searchURL    string
	userAgent    string
	year         conference.YearFilter
	workers      int
	maxBodyBytes int64
	classify     TableClassifier
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the HTTP client, e.g. with one using a test transport.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(s *Scraper) {
		s.log = log
	}
}

// WithMetrics sets the collectors updated by the scraper.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) {
		s.metrics = m
	}
}

// WithTableClassifier replaces the listing table fingerprint.
func WithTableClassifier(classify TableClassifier) Option {
	return func(s *Scraper) {
		s.classify = classify
	}
}

// New creates a Scraper from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) *Scraper {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Scraper{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		searchURL:    cfg.SearchURL(),
		userAgent:    cfg.UserAgent,
		year:         cfg.YearFilter(),
		workers:      cfg.DetailWorkers,
		maxBodyBytes: cfg.MaxBodyBytes,
		classify:     DefaultTableClassifier,
		log:          logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultMaxBodyBytes
	}

	return s
}

// Search finds conferences matching keywords and returns at most limit
// records in listing order. A limit of zero or less returns every record.
//
// Search never panics and never returns an error value: fetch failures
// yield fewer or emptier records, and anything unexpected is reported as an
// error envelope.
func (s *Scraper) Search(ctx context.Context, keywords string, limit int) (result conference.Result) {
	log := s.log.With(logger.Fields{"search_id": uuid.NewString()})

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("search pipeline: %v", p)
			log.Error("search failed", logger.Fields{"keywords": keywords}, err)
			result = conference.Failure(err)
		}
		s.metrics.ObserveSearch(result.Status)
	}()

	if err := ctx.Err(); err != nil {
		return conference.Failure(fmt.Errorf("search canceled: %w", err))
	}

	records := s.searchListings(ctx, log, keywords, s.year)

	// Records beyond the limit are dropped before their detail pages are
	// fetched; enrichment never removes records, so the prefix is the same.
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	warnings := s.enrich(ctx, log, records)

	result = conference.Success(records)
	result.Warnings = warnings

	log.Info("search finished", logger.Fields{
		"keywords": keywords,
		"count":    len(records),
		"warnings": warnings,
	})
	return result
}

// SearchListings fetches and parses the listing page for query without
// fetching detail pages. Failures are logged and yield no records.
func (s *Scraper) SearchListings(ctx context.Context, query string, year conference.YearFilter) []conference.Record {
	return s.searchListings(ctx, s.log, query, year)
}

func (s *Scraper) searchListings(ctx context.Context, log *logger.Logger, query string, year conference.YearFilter) []conference.Record {
	log.Info("searching", logger.Fields{"query": query, "year": year.String()})

	body, err := s.fetchSearch(ctx, query, year)
	if err != nil {
		log.Warn("could not connect to WikiCFP", logger.Fields{"query": query}, err)
		return []conference.Record{}
	}

	records, err := ParseListing(bytes.NewReader(body), s.baseURL, s.classify)
	if err != nil {
		log.Warn("could not parse search results", logger.Fields{"query": query}, err)
		return []conference.Record{}
	}

	s.metrics.AddRecords(len(records))
	log.Debug("parsed listing", logger.Fields{"records": len(records)})
	return records
}

// fetchSearch requests the listing page for query.
func (s *Scraper) fetchSearch(ctx context.Context, query string, year conference.YearFilter) ([]byte, error) {
	u, err := url.Parse(s.searchURL)
	if err != nil {
		return nil, fmt.Errorf("parsing search URL: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("year", string(year))
	u.RawQuery = params.Encode()

	return s.fetch(ctx, metrics.StageSearch, u.String())
}

// FetchDetails fetches and parses one event detail page. An empty URL
// returns empty details without a request.
func (s *Scraper) FetchDetails(ctx context.Context, detailURL string) (conference.Details, error) {
	if detailURL == "" {
		return conference.Details{}, nil
	}

	body, err := s.fetch(ctx, metrics.StageDetail, detailURL)
	if err != nil {
		return conference.Details{}, fmt.Errorf("fetching details from %s: %w", detailURL, err)
	}

	details, err := ParseDetail(bytes.NewReader(body), s.baseURL)
	if err != nil {
		return conference.Details{}, fmt.Errorf("parsing details from %s: %w", detailURL, err)
	}
	return details, nil
}

// enrich merges detail fields into records in place using at most
// s.workers concurrent fetches. It returns the number of failed fetches.
func (s *Scraper) enrich(ctx context.Context, log *logger.Logger, records []conference.Record) int {
	var failed atomic.Int64

	pool := iter.Iterator[conference.Record]{MaxGoroutines: s.workers}
	pool.ForEachIdx(records, func(i int, rec *conference.Record) {
		if rec.WikiCFPLink == "" {
			return
		}

		details, err := s.FetchDetails(ctx, rec.WikiCFPLink)
		if err != nil {
			failed.Add(1)
			log.Warn("error getting event details", logger.Fields{
				"index": i,
				"url":   rec.WikiCFPLink,
			}, err)
			return
		}
		rec.Merge(details)
	})

	return int(failed.Load())
}
