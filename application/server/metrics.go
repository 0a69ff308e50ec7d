package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailerid",
			Name:      "pkl_outcomes_total",
			Help:      "Total number of login steps, by step and status.",
		},
		[]string{"step", "status"},
	)

	certsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mailerid",
			Name:      "user_certs_issued_total",
			Help:      "Total number of user certificates issued.",
		},
	)

	providerUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mailerid",
			Name:      "provider_updates_total",
			Help:      "Total number of provider keys issued.",
		},
	)

	rootRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mailerid",
			Name:      "root_rotations_total",
			Help:      "Total number of root key rotations.",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mailerid",
			Name:      "sessions_active",
			Help:      "Number of login sessions in the store at the last sweep.",
		},
	)
)

// NewMetricsHandler returns the Prometheus exposition handler.
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}
