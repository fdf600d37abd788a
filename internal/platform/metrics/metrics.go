package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RecordsSubmitted    prometheus.Counter
	SimulationsComputed prometheus.Counter
	RequestsIssued      *prometheus.CounterVec
	DecryptionsApplied  *prometheus.CounterVec
	CallbacksRejected   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RecordsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_records_submitted_total",
			Help: "Total number of encrypted records submitted",
		}),
		SimulationsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_simulations_computed_total",
			Help: "Total number of encrypted scores computed",
		}),
		RequestsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_oracle_requests_issued_total",
			Help: "Decryption requests issued to the oracle, by kind",
		}, []string{"kind"}),
		DecryptionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_decryptions_applied_total",
			Help: "Oracle callbacks verified and applied, by kind",
		}, []string{"kind"}),
		CallbacksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_callbacks_rejected_total",
			Help: "Oracle callbacks rejected before application, by reason",
		}, []string{"reason"}),
	}
}

// NewForTest creates Metrics backed by a throwaway registry so parallel tests
// do not collide on the default registerer.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		RecordsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "veil_records_submitted_total",
			Help: "Total number of encrypted records submitted",
		}),
		SimulationsComputed: factory.NewCounter(prometheus.CounterOpts{
			Name: "veil_simulations_computed_total",
			Help: "Total number of encrypted scores computed",
		}),
		RequestsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_oracle_requests_issued_total",
			Help: "Decryption requests issued to the oracle, by kind",
		}, []string{"kind"}),
		DecryptionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_decryptions_applied_total",
			Help: "Oracle callbacks verified and applied, by kind",
		}, []string{"kind"}),
		CallbacksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_callbacks_rejected_total",
			Help: "Oracle callbacks rejected before application, by reason",
		}, []string{"reason"}),
	}
}
