package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 预订 saga 各环节的指标。promauto 直接注册到默认 registry，
// bootstrap 暴露的 /metrics 会带上它们。
var (
	ReservationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketblitz_inventory_reservations_total",
		Help: "Ticket reservation attempts by outcome (reserved, sold_out, lock_timeout, error).",
	}, []string{"outcome"})

	ReleaseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketblitz_inventory_releases_total",
		Help: "Compensating ticket releases applied.",
	})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketblitz_bookings_created_total",
		Help: "Bookings persisted in PENDING state.",
	})

	BookingFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketblitz_bookings_finalized_total",
		Help: "Bookings driven to a terminal state by the reconciler.",
	}, []string{"status"})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketblitz_payments_total",
		Help: "Payment outcomes recorded (success, failed, fallback, duplicate).",
	}, []string{"outcome"})

	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ticketblitz_payment_breaker_state",
		Help: "Circuit breaker state around the payment provider (0 closed, 1 open, 2 half-open).",
	})

	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketblitz_compensation_failures_total",
		Help: "Compensating releases that exhausted retries.",
	})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketblitz_outbox_published_total",
		Help: "Outbox rows relayed to the broker by topic.",
	}, []string{"topic"})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticketblitz_inventory_reserve_seconds",
		Help:    "Latency of the locked reserve path.",
		Buckets: prometheus.DefBuckets,
	})
)
