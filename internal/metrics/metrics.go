// Package metrics exposes Prometheus instrumentation for the access
// decision engine, grant synchronizer, and cascade delete coordinator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datashelf_access_decisions_total",
			Help: "Access decisions by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	grantSyncOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datashelf_grant_sync_operations_total",
			Help: "Grant rows inserted and deleted by the synchronizer.",
		},
		[]string{"op"},
	)

	cascadesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datashelf_cascade_deletes_total",
			Help: "Cascade deletes by entity type and result.",
		},
		[]string{"entity", "result"},
	)

	blobDeleteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datashelf_blob_delete_failures_total",
			Help: "Blob deletions that failed during cascade deletes.",
		},
	)
)

// ObserveDecision records one access decision.
func ObserveDecision(operation string, allowed bool, err error) {
	outcome := "denied"
	switch {
	case err != nil:
		outcome = "error"
	case allowed:
		outcome = "allowed"
	}
	decisionsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveGrantSync records the rows a reconcile call inserted and deleted.
func ObserveGrantSync(added, removed int) {
	grantSyncOpsTotal.WithLabelValues("add").Add(float64(added))
	grantSyncOpsTotal.WithLabelValues("remove").Add(float64(removed))
}

// ObserveCascade records the terminal state of one cascade delete.
func ObserveCascade(entity, result string) {
	cascadesTotal.WithLabelValues(entity, result).Inc()
}

// ObserveBlobDeleteFailure records one failed blob deletion.
func ObserveBlobDeleteFailure() {
	blobDeleteFailuresTotal.Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
