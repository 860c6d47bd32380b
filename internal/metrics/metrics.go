package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	mutationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Name:      "mutation_total",
			Help:      "Count of mutation requests by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	authFailureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Name:      "auth_failure_total",
			Help:      "Count of session teardowns caused by rejected credentials.",
		},
	)

	cacheInvalidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Name:      "cache_invalidation_total",
			Help:      "Count of collection invalidations by collection key.",
		},
		[]string{"collection"},
	)

	unrecognizedStatusTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Name:      "unrecognized_status_total",
			Help:      "Count of bookings received with a status outside the known set.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(mutationTotal, authFailureTotal,
			cacheInvalidationTotal, unrecognizedStatusTotal)
	})
}

func IncMutation(kind, outcome string) {
	mutationTotal.WithLabelValues(kind, outcome).Inc()
}

func IncAuthFailure() {
	authFailureTotal.Inc()
}

func IncCacheInvalidation(collection string) {
	cacheInvalidationTotal.WithLabelValues(collection).Inc()
}

func IncUnrecognizedStatus() {
	unrecognizedStatusTotal.Inc()
}
