package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ticketsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_booked_total",
			Help: "Total tickets reserved",
		},
	)

	paymentsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_submitted_total",
			Help: "Total payment proofs submitted",
		},
	)

	paymentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_decisions_total",
			Help: "Organizer payment decisions by outcome",
		},
		[]string{"outcome"},
	)

	referenceRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_reference_retries_total",
			Help: "Booking reference collisions that triggered a retry",
		},
	)

	qrGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_codes_generated_total",
			Help: "Total QR artifacts rendered",
		},
	)
)

func ObserveRequest(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func TicketBooked() {
	ticketsBooked.Inc()
}

func PaymentSubmitted() {
	paymentsSubmitted.Inc()
}

func PaymentDecided(outcome string) {
	paymentDecisions.WithLabelValues(outcome).Inc()
}

func ReferenceRetry() {
	referenceRetries.Inc()
}

func QRGenerated() {
	qrGenerated.Inc()
}
