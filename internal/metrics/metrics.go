package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retail"

// Metrics 業務計數器，nil receiver 時所有方法都是 no-op
type Metrics struct {
	OrdersCreated      *prometheus.CounterVec
	OrderCancellations prometheus.Counter
	StockRejections    *prometheus.CounterVec
	PromotionPrices    *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed, by order type.",
		}, []string{"order_type"}),
		OrderCancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_cancellations_total",
			Help:      "Orders moved into the cancelled status.",
		}),
		StockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Requests rejected for insufficient stock, by operation.",
		}, []string{"operation"}),
		PromotionPrices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_price_writes_total",
			Help:      "Sale price writes made by the promotion engine, by action.",
		}, []string{"action"}),
		SideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed after commit, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.OrderCancellations, m.StockRejections, m.PromotionPrices, m.SideEffectFailures)
	}
	return m
}

func (m *Metrics) OrderCreated(orderType string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(orderType).Inc()
}

func (m *Metrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.OrderCancellations.Inc()
}

func (m *Metrics) StockRejected(operation string) {
	if m == nil {
		return
	}
	m.StockRejections.WithLabelValues(operation).Inc()
}

func (m *Metrics) PriceWritten(action string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PromotionPrices.WithLabelValues(action).Add(float64(n))
}

func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(kind).Inc()
}
