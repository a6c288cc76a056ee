package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutOrdersTotal,
		checkoutCapturesTotal,
		checkoutRevenueTotal,
	)
}

var (
	checkoutOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Checkout order creations by outcome (created/provider_error).",
		},
		[]string{"outcome"},
	)

	checkoutCapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_captures_total",
			Help: "Capture attempts by outcome (completed/replay/rejected/amount_mismatch/currency_mismatch/provider_error/refunded).",
		},
		[]string{"outcome"},
	)

	checkoutRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_revenue_total",
			Help: "Settled checkout value in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncCheckoutOrder(outcome string) {
	checkoutOrdersTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncCheckoutCapture(outcome string) {
	checkoutCapturesTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddCheckoutRevenue(currency string, amountCents int64) {
	checkoutRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
}
