package payment

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mahimaacademy/academy/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MaxProofSize is the largest accepted payment proof image, in bytes.
const MaxProofSize = 5 << 20

// TransactionRefLen is the length of a bank-issued UTR.
const TransactionRefLen = 12

var transactionRefRegex = regexp.MustCompile(`^\d{12}$`)

// ValidTransactionRef reports whether ref is a well-formed UTR: exactly 12 digits.
func ValidTransactionRef(ref string) bool {
	return transactionRefRegex.MatchString(ref)
}

// PaymentRequest is a purchaser's claim that a course has been paid for.
type PaymentRequest struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CourseID       string          `json:"course_id"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_id"`
	SenderName     string          `json:"sender_name"`
	ProofURL       string          `json:"proof_url"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`  // UTC
	ReviewedAt     time.Time       `json:"reviewed_at"` // UTC, zero while pending
}

func (pr PaymentRequest) IsPending() bool { return pr.Status == StatusPending }

// RequestDetail is a PaymentRequest joined with the submitting user's display identity
// and the title of the course it pays for.
type RequestDetail struct {
	PaymentRequest
	UserName    string `json:"user_name"`
	UserEmail   string `json:"user_email"`
	CourseTitle string `json:"course_title"`
}

// NewPaymentRequest contains information needed to create a new PaymentRequest.
type NewPaymentRequest struct {
	UserID         string          `json:"user_id" validate:"required"`
	CourseID       string          `json:"course_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	TransactionRef string          `json:"transaction_id" validate:"required,utr"`
	SenderName     string          `json:"sender_name" validate:"max=100"`
	ProofURL       string          `json:"proof_url" validate:"required"`
}

func (nr *NewPaymentRequest) Validate(validate *validator.Validate) error {
	nr.SenderName = core.CleanString(nr.SenderName)
	nr.TransactionRef = core.CleanString(nr.TransactionRef)
	return validate.Struct(nr)
}
