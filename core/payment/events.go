package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys of the payment domain events.
const (
	EventSubmitted = "payment.submitted"
	EventApproved  = "payment.approved"
	EventRejected  = "payment.rejected"
)

type Event struct {
	Type           string          `json:"type"`
	RequestID      string          `json:"request_id"`
	UserID         string          `json:"user_id"`
	CourseID       string          `json:"course_id"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_id"`
	Status         Status          `json:"status"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func newEvent(typ string, pr PaymentRequest) Event {
	return Event{
		Type:           typ,
		RequestID:      pr.ID,
		UserID:         pr.UserID,
		CourseID:       pr.CourseID,
		Amount:         pr.Amount,
		TransactionRef: pr.TransactionRef,
		Status:         pr.Status,
		OccurredAt:     NowFunc().UTC(),
	}
}
