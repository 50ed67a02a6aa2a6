package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	positionWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notely_position_writes_total",
			Help: "Total number of position rows rewritten",
		},
		[]string{"collection", "op"},
	)

	lockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notely_lock_wait_seconds",
			Help:    "Time spent waiting for a per-parent ordering lock",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"collection"},
	)

	indexFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notely_search_index_failures_total",
			Help: "Total number of failed search index updates",
		},
		[]string{"op"},
	)
)

func recordPositionWrites(collection, op string, n int64) {
	if n > 0 {
		positionWritesTotal.WithLabelValues(collection, op).Add(float64(n))
	}
}
