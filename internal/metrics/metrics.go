package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	wordsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typing_words_cache_total",
			Help: "Word list lookups by cache outcome",
		},
		[]string{"hit"},
	)

	practiceRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typing_practice_records_total",
			Help: "Practice upserts by result",
		},
		[]string{"result"},
	)

	upsertRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "typing_upsert_retries_total",
			Help: "Practice session upserts retried after a write conflict",
		},
	)

	calendarDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "typing_calendar_build_seconds",
			Help:    "Time spent building a monthly calendar projection",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

func RecordWordsCache(hit bool) {
	label := "false"
	if hit {
		label = "true"
	}
	wordsCacheTotal.WithLabelValues(label).Inc()
}

// RecordPractice counts an upsert outcome: "ok", "conflict" or "error".
func RecordPractice(result string) {
	practiceRecordsTotal.WithLabelValues(result).Inc()
}

func RecordUpsertRetry() {
	upsertRetriesTotal.Inc()
}

func ObserveCalendar(d time.Duration) {
	calendarDuration.Observe(d.Seconds())
}
