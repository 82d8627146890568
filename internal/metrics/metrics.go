package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync engine counters, partitioned by source and by mode (tail or backfill).

const (
	ModeTail     = "tail"
	ModeBackfill = "backfill"
)

var (
	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "source",
		Name:      "fetches_total",
		Help:      "Total window fetches issued to a source",
	}, []string{"source", "mode"})

	SourceFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "source",
		Name:      "fetch_errors_total",
		Help:      "Total window fetches that failed",
	}, []string{"source", "mode"})

	SourceFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feed",
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Window fetch duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source", "mode"})

	SourceRecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "source",
		Name:      "records_dropped_total",
		Help:      "Raw records that could not be normalized",
	}, []string{"source"})

	RecordsMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "store",
		Name:      "records_merged_total",
		Help:      "Records handed to the merge store",
	}, []string{"mode"})

	StoreTransfers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feed",
		Subsystem: "store",
		Name:      "transfers",
		Help:      "Transfers currently held by the merge store",
	})

	BackfillPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "backfill",
		Name:      "pages_total",
		Help:      "Backfill pages fetched",
	})

	BackfillAbortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "backfill",
		Name:      "aborts_total",
		Help:      "Backfill runs stopped by an error",
	})

	RateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "http",
		Name:      "rate_limit_waits_total",
		Help:      "Outgoing requests delayed by the client side rate limiter",
	}, []string{"client"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "queue",
		Name:      "notifications_total",
		Help:      "Notifications processed by the queue",
	}, []string{"status"})
)
