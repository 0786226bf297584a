package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salonspace"

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	checkoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Checkout session attempts by outcome.",
	}, []string{"outcome"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})

	paymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verifications_total",
		Help:      "Payment verification polls by outcome.",
	}, []string{"outcome"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of payment provider calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	outboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_messages_total",
		Help:      "Booking events relayed from the outbox by result.",
	}, []string{"result"})

	bookingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_completed_total",
		Help:      "Confirmed bookings moved to completed after their end date.",
	})
)

// Outcome label values shared by the counters
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeError     = "error"
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency using the matched route template so
// path parameters do not explode label cardinality
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// ObserveCheckout counts a checkout attempt; outcome is "success" or an error kind
func ObserveCheckout(outcome string) {
	checkoutSessions.WithLabelValues(outcome).Inc()
}

// ObserveWebhook counts a webhook delivery
func ObserveWebhook(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveVerification counts a verification poll
func ObserveVerification(outcome string) {
	paymentVerifications.WithLabelValues(outcome).Inc()
}

// ObserveProviderCall records the latency of one payment provider call
func ObserveProviderCall(operation string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	providerRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// ObserveOutbox counts relayed outbox messages
func ObserveOutbox(result string, n int) {
	outboxPublished.WithLabelValues(result).Add(float64(n))
}

// ObserveCompletedBookings counts bookings closed by the completion job
func ObserveCompletedBookings(n int64) {
	bookingsCompleted.Add(float64(n))
}
