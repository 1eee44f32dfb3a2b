package combo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "znamke"

var (
	searchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "combo",
		Name:      "searches_total",
		Help:      "The total number of combination searches by outcome.",
	}, []string{"outcome"})

	cacheHitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "combo",
		Name:      "cache_hits_total",
		Help:      "The total number of searches answered from the result cache.",
	})

	cacheMissCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "combo",
		Name:      "cache_misses_total",
		Help:      "The total number of searches that had to run the pipeline.",
	})

	examinedCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "combo",
		Name:      "subsets_examined_total",
		Help:      "The total number of candidate subsets examined by the filter.",
	})
)

// Search outcomes.
const (
	outcomeOK           = "ok"
	outcomeCached       = "cached"
	outcomeInvalid      = "invalid_config"
	outcomeTooLarge     = "too_large"
	outcomeInconsistent = "cache_inconsistency"
	outcomeCancelled    = "cancelled"
)
