package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "pos"

// OrderMetrics tracks order throughput and revenue.
type OrderMetrics struct {
	created  prometheus.Counter
	replayed prometheus.Counter
	rejected *prometheus.CounterVec
	revenue  prometheus.Counter
	lines    prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted.",
		}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_replayed_total",
			Help:      "Order submissions collapsed onto an existing order by idempotency key.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Order submissions rejected before persistence.",
		}, []string{"reason"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of persisted order totals.",
		}),
		lines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_lines",
			Help:      "Number of lines per persisted order.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}
	reg.MustRegister(m.created, m.replayed, m.rejected, m.revenue, m.lines)
	return m
}

// OrderCreated records a freshly persisted order.
func (m *OrderMetrics) OrderCreated(total decimal.Decimal, lines int) {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
	m.revenue.Add(total.InexactFloat64())
	m.lines.Observe(float64(lines))
}

// OrderReplayed records a duplicate submission answered from an existing order.
func (m *OrderMetrics) OrderReplayed() {
	if m == nil || m.replayed == nil {
		return
	}
	m.replayed.Inc()
}

// OrderRejected records a submission refused before persistence.
func (m *OrderMetrics) OrderRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

