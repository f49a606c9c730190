// Package metrics provides Prometheus metrics for the offer finder.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offers_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Engine Metrics
	CatalogCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offers_catalog_cards",
			Help: "Number of cards in the loaded catalog",
		},
	)

	SelectedCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offers_selected_cards",
			Help: "Number of currently selected cards",
		},
	)

	AggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_aggregations_total",
			Help: "Offer aggregations by view cache result",
		},
		[]string{"cache"},
	)

	AggregatedOffers = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offers_aggregated_offers",
			Help:    "Number of offers produced per aggregation",
			Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
		},
	)

	UsageEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_usage_events_total",
			Help: "Usage ledger mutations by kind and source",
		},
		[]string{"kind", "source"},
	)

	PersistenceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_persistence_errors_total",
			Help: "Failed writes to the key-value store",
		},
		[]string{"key"},
	)

	CarouselAdvancesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_carousel_advances_total",
			Help: "Timer-driven carousel advances",
		},
	)
)
