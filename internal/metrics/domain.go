package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	receiptValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_validations_total",
			Help: "Receipt validation attempts by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	subscriptionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions transitioned to expired by the sweeper",
		},
	)
)

// RecordValidation counts one receipt validation attempt.
func RecordValidation(platform string, valid bool) {
	outcome := "rejected"
	if valid {
		outcome = "valid"
	}
	receiptValidationsTotal.WithLabelValues(platform, outcome).Inc()
}

// RecordExpired counts subscriptions expired by a sweep.
func RecordExpired(n int) {
	subscriptionsExpiredTotal.Add(float64(n))
}
