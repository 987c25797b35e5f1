// Package metrics exposes prometheus collectors for search and fetch activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch stages.
const (
	StageSearch = "search"
	StageDetail = "detail"
)

// Metrics groups the collectors updated by the scraper.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	RecordsParsed prometheus.Counter
	Searches      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfp_fetch_total",
				Help: "Total number of page fetches by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cfp_fetch_duration_seconds",
				Help:    "Duration of page fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		RecordsParsed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cfp_records_parsed_total",
				Help: "Total number of conference records parsed from listing pages",
			},
		),
		Searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfp_searches_total",
				Help: "Total number of searches by result status",
			},
			[]string{"status"},
		),
	}
}

// ObserveFetch records one fetch of the given stage.
func (m *Metrics) ObserveFetch(stage string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Fetches.WithLabelValues(stage, outcome).Inc()
	m.FetchDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddRecords counts records produced by the listing parser.
func (m *Metrics) AddRecords(n int) {
	m.RecordsParsed.Add(float64(n))
}

// ObserveSearch counts a finished search by its envelope status.
func (m *Metrics) ObserveSearch(status string) {
	m.Searches.WithLabelValues(status).Inc()
}
