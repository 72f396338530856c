package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	castOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_cast_outcomes_total",
		Help: "Cast-vote attempts by outcome kind",
	}, []string{"kind"})

	castDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polls_cast_duration_seconds",
		Help:    "Time spent handling a cast-vote attempt",
		Buckets: prometheus.DefBuckets,
	})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_rate_limited_total",
		Help: "Attempts rejected by the rate limiter, by action",
	}, []string{"action"})
)

func ObserveCastOutcome(kind string) {
	castOutcomesTotal.WithLabelValues(kind).Inc()
}

func ObserveCastDuration(seconds float64) {
	castDuration.Observe(seconds)
}

func IncRateLimited(action string) {
	rateLimitedTotal.WithLabelValues(action).Inc()
}
