package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for cart item updates.
const (
	OutcomeApplied         = "applied"
	OutcomeInsufficient    = "rejected_insufficient_quantity"
	OutcomeProductNotFound = "product_not_found"
	OutcomeCatalogError    = "catalog_error"
	OutcomeStorageError    = "storage_error"
)

type Metrics struct {
	UpdateOutcomes     *prometheus.CounterVec
	ProductResolutions prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdateOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cart",
			Name:      "item_updates_total",
			Help:      "Line-item update attempts by outcome.",
		}, []string{"outcome"}),
		ProductResolutions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cart",
			Name:      "product_resolutions_total",
			Help:      "Product snapshot resolutions, served from cache or the catalog.",
		}),
	}
}

// ObserveUpdate is nil-safe so wiring metrics stays optional in tests.
func (m *Metrics) ObserveUpdate(outcome string) {
	if m == nil {
		return
	}
	m.UpdateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProductResolution() {
	if m == nil {
		return
	}
	m.ProductResolutions.Inc()
}
