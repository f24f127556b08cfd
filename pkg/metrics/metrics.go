package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StoreMetrics struct {
	Payments         *prometheus.CounterVec
	PaymentLatencyMS *prometheus.HistogramVec
	Logins           *prometheus.CounterVec
}

func NewStoreMetrics(service string) *StoreMetrics {
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "payments_total",
		Help:      "Total number of payment attempts.",
	}, []string{"method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "payment_duration_ms",
		Help:      "Payment processing latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "logins_total",
		Help:      "Total number of sign-in attempts.",
	}, []string{"method", "status"})

	prometheus.MustRegister(payments, latency, logins)
	return &StoreMetrics{Payments: payments, PaymentLatencyMS: latency, Logins: logins}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
