package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionTransitionsTotal)
}

var subscriptionTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Subscription state transitions by target status.",
	},
	[]string{"status"},
)

func IncSubscriptionTransition(status string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(status)).Inc()
}
