package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "match_cache_lookups_total",
			Help:      "Ordered match set cache lookups by result",
		},
		[]string{"result"},
	)

	matchSetSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "match_set_size",
			Help:      "Number of records matching a computed search",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)
)

func init() {
	prometheus.MustRegister(matchCacheLookups)
	prometheus.MustRegister(matchSetSize)
}

// RecordMatchCache counts a match cache hit or miss.
func RecordMatchCache(hit bool) {
	if hit {
		matchCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	matchCacheLookups.WithLabelValues("miss").Inc()
}

func ObserveMatchSetSize(size int) {
	matchSetSize.Observe(float64(size))
}
