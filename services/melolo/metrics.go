package melolo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jywanonton",
		Name:      "upstream_requests_total",
		Help:      "Upstream API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jywanonton",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream API call latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"endpoint"})

	backfillAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jywanonton",
		Name:      "author_backfill_total",
		Help:      "Author backfill searches by result.",
	}, []string{"result"})
)
