package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventsvc "github.com/mahimaacademy/academy/services/events"
)

func TestCountingPublisher(t *testing.T) {
	rec := eventsvc.NewRecorder()
	pub := NewCountingPublisher(rec)
	before := testutil.ToFloat64(paymentEvents.WithLabelValues("payment.approved"))

	require.NoError(t, pub.Publish(context.Background(), "payment.approved", map[string]string{"id": "1"}))
	require.NoError(t, pub.Publish(context.Background(), "payment.approved", map[string]string{"id": "2"}))

	assert.Equal(t, before+2, testutil.ToFloat64(paymentEvents.WithLabelValues("payment.approved")))
	assert.Equal(t, []string{"payment.approved", "payment.approved"}, rec.Keys())
	assert.NoError(t, pub.Close())
}

func TestObserveRequest(t *testing.T) {
	counter := httpReqTotal.WithLabelValues(http.MethodGet, "/v1/courses/:id", "404")
	before := testutil.ToFloat64(counter)

	ObserveRequest(http.MethodGet, "/v1/courses/:id", http.StatusNotFound, 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	failures := checkoutFailures.WithLabelValues("duplicate_reference")
	before = testutil.ToFloat64(failures)
	CheckoutFailed("duplicate_reference")
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}
