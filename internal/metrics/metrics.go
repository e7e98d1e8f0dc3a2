package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	projections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "projections_total",
			Help:      "Count of slot projections by outcome.",
		},
		[]string{"outcome"},
	)

	placements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "placements_total",
			Help:      "Count of bulk placements by outcome.",
		},
		[]string{"outcome"},
	)

	placedEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "placed_entries_total",
			Help:      "Count of workplan entries created by bulk placement.",
		},
	)

	drags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "drags_total",
			Help:      "Count of finished drag gestures by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessonplanner",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(projections, placements, placedEntries, drags, httpRequests, httpDuration)
	})
}

func IncProjection(outcome string) {
	projections.WithLabelValues(outcome).Inc()
}

func IncPlacement(outcome string, entries int) {
	placements.WithLabelValues(outcome).Inc()
	if entries > 0 {
		placedEntries.Add(float64(entries))
	}
}

func IncDrag(result string) {
	drags.WithLabelValues(result).Inc()
}

func ObserveHTTP(route, code string, seconds float64) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}
