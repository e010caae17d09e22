// Package metrics exposes the Prometheus series the design calls out
// in its metrics ambient stack: query count, query latency, heartbeat
// misses, and the current replication factor, grounded on PairDB's
// promauto-based Metrics struct.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus series this process registers.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec
	IndexMutationsTotal *prometheus.CounterVec
	HeartbeatMisses     prometheus.Counter
	ReplicationFactor   *prometheus.GaugeVec
	ServerStatus        *prometheus.GaugeVec
	RecoveryCompletions *prometheus.CounterVec
}

// New creates and registers every series on prometheus.DefaultRegisterer.
func New() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idioms_queries_total",
				Help: "Total number of md_search queries dispatched by this server.",
			},
			[]string{"shape"},
		),
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idioms_query_duration_seconds",
				Help:    "Latency of md_search queries as dispatched on this server.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shape"},
		),
		IndexMutationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idioms_index_mutations_total",
				Help: "Total number of create/delete index operations sent to replicas.",
			},
			[]string{"op", "result"},
		),
		HeartbeatMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "idioms_heartbeat_misses_total",
				Help: "Total number of heartbeats that were not answered in time.",
			},
		),
		ReplicationFactor: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idioms_replication_factor",
				Help: "Current replication factor for a key pattern, base or adaptive.",
			},
			[]string{"pattern"},
		),
		ServerStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idioms_server_status",
				Help: "Fault manager's current view of a server's status (0=Active,1=Suspect,2=ConfirmedDown,3=Recovering).",
			},
			[]string{"server_id"},
		),
		RecoveryCompletions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idioms_recovery_completions_total",
				Help: "Total number of RecoveryComplete messages observed, by success.",
			},
			[]string{"success"},
		),
	}
}

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
