package metrics

import (
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// StockMetrics exposes the latest catalog snapshot as gauges.
type StockMetrics struct {
	items *prometheus.GaugeVec
	value prometheus.Gauge
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	m := &StockMetrics{
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Catalog items per stock band.",
		}, []string{"band"}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_stock_value",
			Help:      "Estimated value of current stock.",
		}),
	}
	reg.MustRegister(m.items, m.value)
	return m
}

// SetBands overwrites the per-band item counts.
func (m *StockMetrics) SetBands(counts map[enums.StockBand]int) {
	if m == nil || m.items == nil {
		return
	}
	for _, band := range []enums.StockBand{enums.StockBandOutOfStock, enums.StockBandLow, enums.StockBandInStock, enums.StockBandWellStocked} {
		m.items.WithLabelValues(string(band)).Set(float64(counts[band]))
	}
}

func (m *StockMetrics) SetValue(v decimal.Decimal) {
	if m == nil || m.value == nil {
		return
	}
	m.value.Set(v.InexactFloat64())
}
