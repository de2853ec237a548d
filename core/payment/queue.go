package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
)

type (
	// Confirmer asks the operator a yes/no question and blocks until answered.
	Confirmer interface {
		Confirm(ctx context.Context, prompt string) (bool, error)
	}

	// ConfirmFunc adapts a plain function to Confirmer.
	ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

	// ReviewLedger is the part of the ledger the verification queue acts upon.
	ReviewLedger interface {
		ListPending(ctx context.Context) ([]RequestDetail, error)
		Approve(ctx context.Context, id string) (PaymentRequest, error)
		Reject(ctx context.Context, id string) (PaymentRequest, error)
	}

	QueueOption func(*Queue)
)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// WithRetry replaces the retry policy applied to ledger round trips.
func WithRetry(opts ...retry.Option) QueueOption {
	return func(q *Queue) {
		q.retryOpts = opts
	}
}

// Queue is the verifier's view over pending payment requests.
// Every approve or reject is confirmed by the operator first and followed by a refetch,
// so the listing only ever reflects what the ledger says.
type Queue struct {
	ledger    ReviewLedger
	confirmer Confirmer
	retryOpts []retry.Option

	mu    sync.Mutex
	busy  bool
	items []RequestDetail
}

func NewQueue(ledger ReviewLedger, confirmer Confirmer, opts ...QueueOption) *Queue {
	q := &Queue{
		ledger:    ledger,
		confirmer: confirmer,
		retryOpts: []retry.Option{
			retry.Attempts(3),
			retry.Delay(200 * time.Millisecond),
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Items returns the pending requests as of the last refetch.
func (q *Queue) Items() []RequestDetail {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]RequestDetail, len(q.items))
	copy(items, q.items)
	return items
}

func (q *Queue) acquire() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.busy {
		return ErrActionInProgress
	}
	q.busy = true
	return nil
}

func (q *Queue) release() {
	q.mu.Lock()
	q.busy = false
	q.mu.Unlock()
}

// do runs fn, retrying transient failures only.
func (q *Queue) do(ctx context.Context, fn func() error) error {
	opts := make([]retry.Option, 0, len(q.retryOpts)+3)
	opts = append(opts, q.retryOpts...)
	opts = append(opts,
		retry.Context(ctx),
		retry.RetryIf(core.IsTransient),
		retry.LastErrorOnly(true),
	)
	return retry.Do(fn, opts...)
}

// Refresh refetches the pending requests.
func (q *Queue) Refresh(ctx context.Context) error {
	if err := q.acquire(); err != nil {
		return err
	}
	defer q.release()
	return q.refresh(ctx)
}

func (q *Queue) refresh(ctx context.Context) error {
	var items []RequestDetail
	err := q.do(ctx, func() error {
		var err error
		items, err = q.ledger.ListPending(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "listing pending payments")
	}

	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	return nil
}

func (q *Queue) find(id string) (RequestDetail, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.ID == id {
			return item, true
		}
	}
	return RequestDetail{}, false
}

func prompt(verb string, item RequestDetail, known bool) string {
	if !known {
		return fmt.Sprintf("%s payment request %s?", verb, item.ID)
	}
	sender := item.SenderName
	if sender == "" {
		sender = item.UserName
	}
	return fmt.Sprintf("%s payment of ₹%s for %s from %s (UTR %s)?",
		verb, item.Amount.StringFixed(2), item.CourseTitle, sender, item.TransactionRef)
}

// Approve asks for confirmation, approves the request and refetches the queue.
func (q *Queue) Approve(ctx context.Context, id string) (PaymentRequest, error) {
	return q.act(ctx, id, "Approve", q.ledger.Approve)
}

// Reject asks for confirmation, rejects the request and refetches the queue.
func (q *Queue) Reject(ctx context.Context, id string) (PaymentRequest, error) {
	return q.act(ctx, id, "Reject", q.ledger.Reject)
}

func (q *Queue) act(ctx context.Context, id, verb string, fn func(context.Context, string) (PaymentRequest, error)) (PaymentRequest, error) {
	if err := q.acquire(); err != nil {
		return PaymentRequest{}, err
	}
	defer q.release()

	item, known := q.find(id)
	if !known {
		item.ID = id
	}
	ok, err := q.confirmer.Confirm(ctx, prompt(verb, item, known))
	if err != nil {
		return PaymentRequest{}, errors.Wrap(err, "asking for confirmation")
	}
	if !ok {
		return PaymentRequest{}, ErrNotConfirmed
	}

	var pr PaymentRequest
	actErr := q.do(ctx, func() error {
		var err error
		pr, err = fn(ctx, id)
		return err
	})

	// refetch whatever happened: a stale id also means a stale listing
	refreshErr := q.refresh(ctx)
	if actErr != nil {
		return PaymentRequest{}, actErr
	}
	return pr, refreshErr
}
