package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the cluster coordination metrics.
type Registry struct {
	registry *prometheus.Registry

	NodesTotal        prometheus.Gauge
	HealthyNodesTotal prometheus.Gauge
	ElectionsTotal    *prometheus.CounterVec
	Term              prometheus.Gauge
	Role              *prometheus.GaugeVec
	RequestsInFlight  prometheus.Gauge
	StoreFallback     prometheus.Gauge
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// DefaultRegistry returns the process-wide registry, creating it on first use.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an isolated registry (used by tests).
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.NodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemesh_cluster_nodes_total",
			Help: "Total number of nodes in the cluster view",
		},
	)

	r.HealthyNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemesh_cluster_healthy_nodes_total",
			Help: "Number of nodes with a fresh heartbeat",
		},
	)

	r.ElectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicemesh_cluster_elections_total",
			Help: "Total number of leader elections",
		},
		[]string{"result"}, // started, won, lost, timeout
	)

	r.Term = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemesh_cluster_term",
			Help: "Current election term",
		},
	)

	r.Role = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voicemesh_cluster_role",
			Help: "Node role in cluster (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // leader, follower, candidate, disconnected
	)

	r.RequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemesh_requests_in_flight",
			Help: "Requests currently allocated to this node",
		},
	)

	r.StoreFallback = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemesh_store_fallback_active",
			Help: "Whether the cluster store is running on the in-memory fallback (1=yes)",
		},
	)

	return r
}

// SetRole sets the current cluster role, clearing the others.
func (r *Registry) SetRole(role string) {
	for _, known := range []string{"leader", "follower", "candidate", "disconnected"} {
		r.Role.WithLabelValues(known).Set(0)
	}
	r.Role.WithLabelValues(role).Set(1)
}

// Handler returns an http.Handler exposing the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
