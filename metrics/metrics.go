package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provisioning outcomes.
const (
	ProvisionCached  = "cached"
	ProvisionAdopted = "adopted"
	ProvisionCreated = "created"
	ProvisionFailed  = "failed"
)

// Metrics holds the storefront collectors. A nil *Metrics records nothing.
type Metrics struct {
	provisioning  *prometheus.CounterVec
	cartAdds      *prometheus.CounterVec
	catalogReads  *prometheus.CounterVec
	subscriptions prometheus.Gauge
}

// New registers the collectors on reg. A nil registerer yields a no-op Metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_provisioning_total",
			Help: "Identity provisioning attempts by outcome.",
		}, []string{"outcome"}),
		cartAdds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_adds_total",
			Help: "Add-to-cart operations by result (created, incremented, failed).",
		}, []string{"result"}),
		catalogReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_reads_total",
			Help: "Catalog listings by category and result.",
		}, []string{"category", "result"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_subscriptions",
			Help: "Open live cart subscriptions.",
		}),
	}
	reg.MustRegister(m.provisioning, m.cartAdds, m.catalogReads, m.subscriptions)
	return m
}

func (m *Metrics) ObserveProvisioning(outcome string) {
	if m == nil || m.provisioning == nil {
		return
	}
	m.provisioning.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCartAdd(result string) {
	if m == nil || m.cartAdds == nil {
		return
	}
	m.cartAdds.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCatalogRead(category, result string) {
	if m == nil || m.catalogReads == nil {
		return
	}
	m.catalogReads.WithLabelValues(normalizeLabel(category), result).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil || m.subscriptions == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil || m.subscriptions == nil {
		return
	}
	m.subscriptions.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
