// Package metrics provides Prometheus collectors for the feature store.
//
// The orchestrator counts actions by outcome and times them; the client
// counts library operations. Collectors register with the default
// registry on package load.
//
//	timer := metrics.NewTimer("UPLOAD")
//	resp := handle(req)
//	timer.ObserveAction(resp.Status)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts orchestrator actions.
	// Labels: action (CREATE, UPLOAD, ...), status (OK/ERROR)
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurestore_actions_total",
			Help: "Total number of orchestrator actions handled",
		},
		[]string{"action", "status"},
	)

	// ActionLatency tracks orchestrator action latency in seconds.
	ActionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "featurestore_action_latency_seconds",
			Help: "Orchestrator action latency in seconds",
			Buckets: []float64{
				0.01, // 10ms - Status probes
				0.05,
				0.1,
				0.5, // 500ms - Single object promotion
				1,
				5, // 5s - Large partition batches
				15,
				60,
			},
		},
		[]string{"action"},
	)

	// ObjectsPromoted counts staged objects copied to production.
	ObjectsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "featurestore_objects_promoted_total",
			Help: "Total number of staged objects copied to production",
		},
	)

	// CatalogCalls counts catalog mutations.
	// Labels: call (create_table/batch_add_partitions), status (success/error)
	CatalogCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurestore_catalog_calls_total",
			Help: "Total number of catalog mutation calls",
		},
		[]string{"call", "status"},
	)

	// PartitionsRegistered counts partitions added to the catalog.
	PartitionsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "featurestore_partitions_registered_total",
			Help: "Total number of partitions added to the catalog",
		},
	)

	// OperationsTotal counts client library operations.
	// Labels: operation (create/append/...), status (success/error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurestore_operations_total",
			Help: "Total number of client operations",
		},
		[]string{"operation", "status"},
	)

	// QueryProbes counts query status observations by state.
	QueryProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurestore_query_probes_total",
			Help: "Total number of query status probes by observed state",
		},
		[]string{"state"},
	)
)

// Timer measures one orchestrator action.
type Timer struct {
	start  time.Time
	action string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(action string) *Timer {
	return &Timer{
		start:  time.Now(),
		action: action,
	}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveAction records the action latency and counts it under status.
func (t *Timer) ObserveAction(status string) time.Duration {
	d := t.Stop()
	ActionLatency.WithLabelValues(t.action).Observe(d.Seconds())
	ActionsTotal.WithLabelValues(t.action, status).Inc()
	return d
}
