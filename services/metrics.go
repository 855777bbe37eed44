package services

import "github.com/prometheus/client_golang/prometheus"

var (
	compoundsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperblend_compounds_processed_total",
			Help: "Anzahl verarbeiteter Verbindungen nach Endzustand.",
		},
		[]string{"state"},
	)
	adapterRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperblend_adapter_requests_total",
			Help: "Anfragen an externe Quellen nach Ergebnis.",
		},
		[]string{"source", "outcome"},
	)
	targetsDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperblend_targets_discovered_total",
			Help: "Gespeicherte Compound-Target-Beziehungen.",
		},
	)
	targetsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperblend_targets_skipped_total",
			Help: "Verworfene Targets nach Grund.",
		},
		[]string{"reason"},
	)
	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperblend_batch_runs_total",
			Help: "Batch-Läufe nach Auslöser.",
		},
		[]string{"trigger"},
	)
)

func init() {
	prometheus.MustRegister(compoundsProcessed, adapterRequests, targetsDiscovered, targetsFiltered, batchRuns)
}
