package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	CheckoutPlaced          = "placed"
	CheckoutPlacedNoPayment = "placed_payment_failed"
	CheckoutRejected        = "rejected"
	CheckoutFailed          = "failed"
)

// CheckoutMetrics counts checkout attempts by outcome.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &CheckoutMetrics{outcomes: outcomes}
}

// IncOutcome increments the counter for the named outcome.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
