package recommend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total recommendation requests by kind and status",
		},
		[]string{"kind", "status"},
	)

	cacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_operations_total",
			Help: "Cache hits, misses and invalidations by result kind",
		},
		[]string{"kind", "operation"},
	)

	rankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_ranking_duration_seconds",
			Help:    "Wall time of a full ranking pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	scoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_score_distribution",
			Help:    "Distribution of final blended scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	partialResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_partial_results_total",
			Help: "Ranking passes truncated by the request deadline",
		},
		[]string{"kind"},
	)

	feedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_feedback_events_total",
			Help: "Feedback submissions by action",
		},
		[]string{"action"},
	)
)

func RecordRequest(kind, status string) {
	recommendationRequests.WithLabelValues(kind, status).Inc()
}

func RecordCacheHit(kind string) {
	cacheOperations.WithLabelValues(kind, "hit").Inc()
}

func RecordCacheMiss(kind string) {
	cacheOperations.WithLabelValues(kind, "miss").Inc()
}

func RecordCacheInvalidation(kind string, n int) {
	cacheOperations.WithLabelValues(kind, "invalidate").Add(float64(n))
}

func ObserveRankingDuration(kind string, d time.Duration) {
	rankingDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func ObserveScore(score float64) {
	scoreDistribution.Observe(score)
}

func RecordPartialResult(kind string) {
	partialResults.WithLabelValues(kind).Inc()
}

func RecordFeedback(action string) {
	feedbackEvents.WithLabelValues(action).Inc()
}
