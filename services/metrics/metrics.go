// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mahimaacademy/academy/core"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "academy_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})

	paymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_payment_events_total",
		Help: "Payment requests submitted, approved and rejected",
	}, []string{"event"})

	checkoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_checkout_failures_total",
		Help: "Checkout submissions refused, by reason",
	}, []string{"reason"})
)

// ObserveRequest records one served HTTP request. route is the route pattern, not the raw path.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpReqTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// CheckoutFailed counts a refused checkout submission.
func CheckoutFailed(reason string) {
	checkoutFailures.WithLabelValues(reason).Inc()
}

// CountingPublisher counts events by routing key before handing them to the next publisher.
type CountingPublisher struct {
	next core.EventPublisher
}

var _ core.EventPublisher = (*CountingPublisher)(nil)

func NewCountingPublisher(next core.EventPublisher) *CountingPublisher {
	return &CountingPublisher{next: next}
}

func (p *CountingPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	paymentEvents.WithLabelValues(key).Inc()
	return p.next.Publish(ctx, key, event)
}

func (p *CountingPublisher) Close() error { return p.next.Close() }
