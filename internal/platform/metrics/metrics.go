package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared across services.
type Metrics struct {
	SubjectsMerged    prometheus.Counter
	SubjectsSplit     prometheus.Counter
	DocumentsSaved    prometheus.Counter
	PairsAntiMatched  prometheus.Counter
	PairsDeferred     prometheus.Counter
	CachePurges       prometheus.Counter
	IdentifierRetries prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubjectsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_subjects_merged_total",
			Help: "Total number of identify operations that merged two subjects",
		}),
		SubjectsSplit: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_subjects_split_total",
			Help: "Total number of unidentify operations that split a subject",
		}),
		DocumentsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_documents_saved_total",
			Help: "Total number of document revisions saved",
		}),
		PairsAntiMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_pairs_anti_identified_total",
			Help: "Total number of pairs marked as different people",
		}),
		PairsDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_pairs_deferred_total",
			Help: "Total number of pairs postponed for later review",
		}),
		CachePurges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_similarity_cache_purges_total",
			Help: "Total number of similarity cache invalidations",
		}),
		IdentifierRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bioport_identifier_retries_total",
			Help: "Total number of identifier collisions that forced a retry",
		}),
	}
}
