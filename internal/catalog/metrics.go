package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

type StoreMetrics struct {
	Persists        *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	Products        prometheus.Gauge
}

func NewStoreMetrics(reg *prometheus.Registry) *StoreMetrics {
	m := &StoreMetrics{
		Persists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_persist_total",
				Help: "Catalog snapshot writes by result",
			},
			[]string{"result"},
		),
		PersistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "catalog_persist_duration_seconds",
				Help: "Catalog snapshot write latency",
			},
		),
		Products: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_products",
				Help: "Products currently in the catalog",
			},
		),
	}

	reg.MustRegister(m.Persists, m.PersistDuration, m.Products)
	return m
}

func (m *StoreMetrics) observePersist(start time.Time, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(time.Since(start).Seconds())

	result := resultOK
	if err != nil {
		result = resultError
	}
	m.Persists.WithLabelValues(result).Inc()
}

func (m *StoreMetrics) setProducts(n int) {
	if m == nil {
		return
	}
	m.Products.Set(float64(n))
}
