package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		discountRedemptionsTotal,
		discountRejectionsTotal,
	)
}

var (
	discountRedemptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discount_redemptions_total",
			Help: "Recorded discount code redemptions.",
		},
	)

	discountRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_rejections_total",
			Help: "Discount validations that failed, by reason.",
		},
		[]string{"reason"},
	)
)

func IncDiscountRedemption() {
	discountRedemptionsTotal.Inc()
}

func IncDiscountRejection(reason string) {
	discountRejectionsTotal.WithLabelValues(norm(reason)).Inc()
}
