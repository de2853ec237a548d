package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/payment"
)

const paymentColumns = `id, user_id, course_id, amount, transaction_ref, sender_name, proof_url, status, created_at, reviewed_at`

type paymentRow struct {
	ID             string          `db:"id"`
	UserID         string          `db:"user_id"`
	CourseID       string          `db:"course_id"`
	Amount         decimal.Decimal `db:"amount"`
	TransactionRef string          `db:"transaction_ref"`
	SenderName     null.String     `db:"sender_name"`
	ProofURL       string          `db:"proof_url"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	ReviewedAt     null.Time       `db:"reviewed_at"`
}

func toPaymentRow(pr payment.PaymentRequest) paymentRow {
	return paymentRow{
		ID:             pr.ID,
		UserID:         pr.UserID,
		CourseID:       pr.CourseID,
		Amount:         pr.Amount,
		TransactionRef: pr.TransactionRef,
		SenderName:     null.NewString(pr.SenderName, pr.SenderName != ""),
		ProofURL:       pr.ProofURL,
		Status:         string(pr.Status),
		CreatedAt:      pr.CreatedAt.UTC(),
		ReviewedAt:     null.NewTime(pr.ReviewedAt.UTC(), !pr.ReviewedAt.IsZero()),
	}
}

func (r paymentRow) request() payment.PaymentRequest {
	pr := payment.PaymentRequest{
		ID:             r.ID,
		UserID:         r.UserID,
		CourseID:       r.CourseID,
		Amount:         r.Amount,
		TransactionRef: r.TransactionRef,
		SenderName:     r.SenderName.String,
		ProofURL:       r.ProofURL,
		Status:         payment.Status(r.Status),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.ReviewedAt.Valid {
		pr.ReviewedAt = r.ReviewedAt.Time.UTC()
	}
	return pr
}

type paymentDetailRow struct {
	paymentRow
	UserName    string `db:"user_name"`
	UserEmail   string `db:"user_email"`
	CourseTitle string `db:"course_title"`
}

func (r paymentDetailRow) detail() payment.RequestDetail {
	return payment.RequestDetail{
		PaymentRequest: r.request(),
		UserName:       r.UserName,
		UserEmail:      r.UserEmail,
		CourseTitle:    r.CourseTitle,
	}
}

const paymentDetailQuery = `SELECT p.id, p.user_id, p.course_id, p.amount, p.transaction_ref, p.sender_name,
		p.proof_url, p.status, p.created_at, p.reviewed_at,
		u.name AS user_name, u.email AS user_email, c.title AS course_title
	FROM payment_requests p
	JOIN users u ON u.id = p.user_id
	JOIN courses c ON c.id = p.course_id`

type paymentRepository struct {
	executor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DBExecutor) *paymentRepository {
	return &paymentRepository{executor{db: db}}
}

// CreateRequest leaves the uniqueness of transaction_ref to its unique constraint,
// so concurrent submissions of one reference cannot both succeed.
func (repo paymentRepository) CreateRequest(ctx context.Context, pr payment.PaymentRequest) (payment.PaymentRequest, error) {
	pr.ID = newID()
	row := toPaymentRow(pr)
	q := `INSERT INTO payment_requests (` + paymentColumns + `)
		VALUES (:id, :user_id, :course_id, :amount, :transaction_ref, :sender_name, :proof_url, :status, :created_at, :reviewed_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(ctx), q, row); err != nil {
		if isUniqueViolation(err, "payment_requests_transaction_ref_key") {
			return payment.PaymentRequest{}, payment.ErrDuplicateReference
		}
		return payment.PaymentRequest{}, wrapErr(err, "inserting payment request")
	}
	return row.request(), nil
}

func (repo paymentRepository) GetRequest(ctx context.Context, id string) (payment.PaymentRequest, error) {
	if !validID(id) {
		return payment.PaymentRequest{}, payment.ErrNotFound
	}
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = $1`
	if err := repo.getExec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return payment.PaymentRequest{}, trapNoRows(err, payment.ErrNotFound, "finding payment request")
	}
	return row.request(), nil
}

func (repo paymentRepository) GetRequestDetail(ctx context.Context, id string) (payment.RequestDetail, error) {
	if !validID(id) {
		return payment.RequestDetail{}, payment.ErrNotFound
	}
	var row paymentDetailRow
	if err := repo.getExec(ctx).GetContext(ctx, &row, paymentDetailQuery+` WHERE p.id = $1`, id); err != nil {
		return payment.RequestDetail{}, trapNoRows(err, payment.ErrNotFound, "finding payment request")
	}
	return row.detail(), nil
}

func (repo paymentRepository) QueryRequestsByStatus(ctx context.Context, status payment.Status) ([]payment.RequestDetail, error) {
	var rows []paymentDetailRow
	q := paymentDetailQuery + ` WHERE p.status = $1 ORDER BY p.created_at DESC`
	if err := repo.getExec(ctx).SelectContext(ctx, &rows, q, string(status)); err != nil {
		return nil, wrapErr(err, "querying payment requests")
	}
	details := make([]payment.RequestDetail, 0, len(rows))
	for _, r := range rows {
		details = append(details, r.detail())
	}
	return details, nil
}

func (repo paymentRepository) QueryUserRequests(ctx context.Context, userID string) ([]payment.PaymentRequest, error) {
	if !validID(userID) {
		return []payment.PaymentRequest{}, nil
	}
	var rows []paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.getExec(ctx).SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, wrapErr(err, "querying user payment requests")
	}
	requests := make([]payment.PaymentRequest, 0, len(rows))
	for _, r := range rows {
		requests = append(requests, r.request())
	}
	return requests, nil
}

// UpdateRequestStatus is a single conditional UPDATE; the row lock it takes serializes
// concurrent reviews of the same request.
func (repo paymentRepository) UpdateRequestStatus(ctx context.Context, id string, from, to payment.Status, at time.Time) (payment.PaymentRequest, error) {
	if !validID(id) {
		return payment.PaymentRequest{}, payment.ErrNotFound
	}
	exec := repo.getExec(ctx)

	var row paymentRow
	q := `UPDATE payment_requests SET status = $3, reviewed_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + paymentColumns
	err := exec.GetContext(ctx, &row, q, id, string(from), string(to), at.UTC())
	if err == nil {
		return row.request(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return payment.PaymentRequest{}, wrapErr(err, "updating payment request status")
	}

	// nothing updated: tell a missing request from one in another status
	var exists bool
	if err = exec.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM payment_requests WHERE id = $1)`, id); err != nil {
		return payment.PaymentRequest{}, wrapErr(err, "checking payment request")
	}
	if !exists {
		return payment.PaymentRequest{}, payment.ErrNotFound
	}
	return payment.PaymentRequest{}, payment.ErrInvalidTransition
}

func (repo paymentRepository) CountRequests(ctx context.Context, status payment.Status) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM payment_requests WHERE status = $1`
	if err := repo.getExec(ctx).GetContext(ctx, &n, q, string(status)); err != nil {
		return 0, wrapErr(err, "counting payment requests")
	}
	return n, nil
}
