// Package metrics defines the gateway's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookclaw_events_total",
			Help: "Inbound webhook events by outcome",
		},
		[]string{"outcome"}, // accepted|duplicate|rejected|ignored
	)

	Deliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookclaw_deliveries_total",
			Help: "Outbound messages delivered",
		},
	)

	DeliveryRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookclaw_delivery_retries_total",
			Help: "Failed or rate-limited send attempts",
		},
	)

	DeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookclaw_delivery_failures_total",
			Help: "Sends abandoned after exhausting retries",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		Deliveries,
		DeliveryRetries,
		DeliveryFailures,
	)
}
