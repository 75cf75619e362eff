package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treelof_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "treelof_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RevisionsProposedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treelof_revisions_proposed_total",
			Help: "Revision records created, by reference.",
		},
		[]string{"reference"},
	)

	RevisionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treelof_revision_errors_total",
			Help: "Failed revision operations by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "treelof_revision_feed_subscribers",
			Help: "Open websocket subscriptions to the revision feed.",
		},
	)
)
