package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avast/retry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	testutil "github.com/mahimaacademy/academy/tests"
)

// flakyLedger fails the first listings with a transient error.
type flakyLedger struct {
	payment.ReviewLedger
	failures int
	listed   int
}

func (l *flakyLedger) ListPending(ctx context.Context) ([]payment.RequestDetail, error) {
	l.listed++
	if l.failures > 0 {
		l.failures--
		return nil, core.NewTransientError(errors.New("connection reset"))
	}
	return l.ReviewLedger.ListPending(ctx)
}

type prompts struct {
	asked   []string
	answers []bool
}

func (p *prompts) Confirm(_ context.Context, prompt string) (bool, error) {
	p.asked = append(p.asked, prompt)
	if len(p.answers) == 0 {
		return false, nil
	}
	ok := p.answers[0]
	p.answers = p.answers[1:]
	return ok, nil
}

var noDelay = payment.WithRetry(retry.Attempts(3), retry.Delay(time.Millisecond))

func TestQueue(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	asha := testutil.CreateUser(t, l.users, "Asha", "asha@test.in", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, l.courses, "Physics", 499)
	now := time.Now().UTC()
	first := testutil.CreatePaymentRequest(t, l.payments, asha, crs, "111111111111", payment.StatusPending, now.Add(-time.Minute))
	second := testutil.CreatePaymentRequest(t, l.payments, asha, crs, "222222222222", payment.StatusPending, now)

	confirm := &prompts{}
	q := payment.NewQueue(l.Service, confirm, noDelay)
	assert.Empty(t, q.Items())
	require.NoError(t, q.Refresh(ctx))
	require.Len(t, q.Items(), 2)
	assert.Equal(t, second.ID, q.Items()[0].ID)

	t.Run("declined", func(t *testing.T) {
		confirm.answers = []bool{false}
		_, err := q.Approve(ctx, second.ID)
		assert.Equal(t, payment.ErrNotConfirmed, err)
		assert.Equal(t, "Approve payment of ₹499.00 for Physics from Asha (UTR 222222222222)?", confirm.asked[len(confirm.asked)-1])

		stored, err := l.Get(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, stored.Status)
		assert.Len(t, q.Items(), 2)
	})

	t.Run("approved", func(t *testing.T) {
		confirm.answers = []bool{true}
		pr, err := q.Approve(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusApproved, pr.Status)
		require.Len(t, q.Items(), 1)
		assert.Equal(t, first.ID, q.Items()[0].ID)
	})

	t.Run("stale", func(t *testing.T) {
		// reviewed elsewhere since the last refetch
		_, err := l.Reject(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, q.Items(), 1)

		confirm.answers = []bool{true}
		_, err = q.Approve(ctx, first.ID)
		assert.True(t, payment.IsStale(err))
		assert.Empty(t, q.Items())
	})

	t.Run("unknown id", func(t *testing.T) {
		confirm.answers = []bool{true}
		_, err := q.Reject(ctx, "6a1d0c55-2f3e-4b7a-8c9d-0e1f2a3b4c5d")
		assert.Equal(t, payment.ErrNotFound, err)
		assert.Equal(t, "Reject payment request 6a1d0c55-2f3e-4b7a-8c9d-0e1f2a3b4c5d?", confirm.asked[len(confirm.asked)-1])
	})
}

func TestQueue_transientFailures(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	asha := testutil.CreateUser(t, l.users, "Asha", "asha@test.in", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, l.courses, "Physics", 499)
	testutil.CreatePaymentRequest(t, l.payments, asha, crs, "111111111111", payment.StatusPending)

	t.Run("retried", func(t *testing.T) {
		flaky := &flakyLedger{ReviewLedger: l.Service, failures: 2}
		q := payment.NewQueue(flaky, &prompts{}, noDelay)
		require.NoError(t, q.Refresh(ctx))
		assert.Equal(t, 3, flaky.listed)
		assert.Len(t, q.Items(), 1)
	})

	t.Run("gives up", func(t *testing.T) {
		flaky := &flakyLedger{ReviewLedger: l.Service, failures: 5}
		q := payment.NewQueue(flaky, &prompts{}, noDelay)
		err := q.Refresh(ctx)
		assert.True(t, core.IsTransient(err))
		assert.Equal(t, 3, flaky.listed)
	})

	t.Run("not retried", func(t *testing.T) {
		confirm := &prompts{answers: []bool{true}}
		q := payment.NewQueue(l.Service, confirm, noDelay)
		_, err := q.Approve(ctx, "6a1d0c55-2f3e-4b7a-8c9d-0e1f2a3b4c5d")
		assert.Equal(t, payment.ErrNotFound, err)
	})
}

func TestQueue_oneActionAtATime(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	asha := testutil.CreateUser(t, l.users, "Asha", "asha@test.in", "", user.StudentRoles, true)
	crs := testutil.CreateCourse(t, l.courses, "Physics", 499)
	pr := testutil.CreatePaymentRequest(t, l.payments, asha, crs, "111111111111", payment.StatusPending)

	var q *payment.Queue
	var nested error
	q = payment.NewQueue(l.Service, payment.ConfirmFunc(func(ctx context.Context, _ string) (bool, error) {
		// the operator hits another button while the prompt is open
		_, nested = q.Reject(ctx, pr.ID)
		return true, nil
	}), noDelay)
	require.NoError(t, q.Refresh(ctx))

	approved, err := q.Approve(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, approved.Status)
	assert.Equal(t, payment.ErrActionInProgress, nested)
	assert.NoError(t, q.Refresh(ctx)) // released after the action
}
