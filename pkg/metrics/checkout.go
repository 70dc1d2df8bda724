package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts order placement outcomes.
type CheckoutMetrics struct {
	placed            prometheus.Counter
	failures          *prometheus.CounterVec
	insufficientStock prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders successfully placed.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts that did not produce an order.",
	}, []string{"reason"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insufficient_stock_total",
		Help: "Checkout lines rejected because stock ran out.",
	})
	reg.MustRegister(placed, failures, insufficient)
	return &CheckoutMetrics{
		placed:            placed,
		failures:          failures,
		insufficientStock: insufficient,
	}
}

// IncPlaced increments the placed-orders counter.
func (c *CheckoutMetrics) IncPlaced() {
	if c == nil || c.placed == nil {
		return
	}
	c.placed.Inc()
}

// IncFailure increments the failure counter for the given reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failures == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	c.failures.WithLabelValues(reason).Inc()
}

// IncInsufficientStock increments the out-of-stock rejection counter.
func (c *CheckoutMetrics) IncInsufficientStock() {
	if c == nil || c.insufficientStock == nil {
		return
	}
	c.insufficientStock.Inc()
}
