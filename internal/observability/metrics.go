package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slt_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slt_checkout_sessions_total",
			Help: "Checkout session creations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ScanResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slt_scan_results_total",
			Help: "Ticket scan attempts by classification and method",
		},
		[]string{"result", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slt_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slt_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slt_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slt_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
