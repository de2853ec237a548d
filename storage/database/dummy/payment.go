package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mahimaacademy/academy/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) detail(pr payment.PaymentRequest) payment.RequestDetail {
	usr := repo.db.tables.users[pr.UserID]
	crs := repo.db.tables.courses[pr.CourseID]
	return payment.RequestDetail{
		PaymentRequest: pr,
		UserName:       usr.Name,
		UserEmail:      usr.Email,
		CourseTitle:    crs.Title,
	}
}

// newestFirst sorts by created_at descending, latest insert first on ties.
func (repo *paymentRepository) newestFirst(createdAt func(i int) time.Time, id func(i int) string) func(i, j int) bool {
	order := repo.db.tables.order
	return func(i, j int) bool {
		if !createdAt(i).Equal(createdAt(j)) {
			return createdAt(i).After(createdAt(j))
		}
		return order[id(i)] > order[id(j)]
	}
}

// CreateRequest checks and inserts under the DB lock, so one reference is accepted once.
func (repo *paymentRepository) CreateRequest(ctx context.Context, pr payment.PaymentRequest) (payment.PaymentRequest, error) {
	defer repo.db.lock(ctx)()
	for _, existing := range repo.db.tables.payments {
		if existing.TransactionRef == pr.TransactionRef {
			return payment.PaymentRequest{}, payment.ErrDuplicateReference
		}
	}
	pr.ID = uuid.New().String()
	repo.db.tables.payments[pr.ID] = pr
	repo.db.tables.inserted(pr.ID)
	return pr, nil
}

func (repo *paymentRepository) GetRequest(ctx context.Context, id string) (payment.PaymentRequest, error) {
	defer repo.db.lock(ctx)()
	if pr, ok := repo.db.tables.payments[id]; ok {
		return pr, nil
	}
	return payment.PaymentRequest{}, payment.ErrNotFound
}

func (repo *paymentRepository) GetRequestDetail(ctx context.Context, id string) (payment.RequestDetail, error) {
	defer repo.db.lock(ctx)()
	pr, ok := repo.db.tables.payments[id]
	if !ok {
		return payment.RequestDetail{}, payment.ErrNotFound
	}
	return repo.detail(pr), nil
}

func (repo *paymentRepository) QueryRequestsByStatus(ctx context.Context, status payment.Status) ([]payment.RequestDetail, error) {
	defer repo.db.lock(ctx)()

	details := make([]payment.RequestDetail, 0)
	for _, pr := range repo.db.tables.payments {
		if pr.Status == status {
			details = append(details, repo.detail(pr))
		}
	}
	sort.Slice(details, repo.newestFirst(
		func(i int) time.Time { return details[i].CreatedAt },
		func(i int) string { return details[i].ID },
	))
	return details, nil
}

func (repo *paymentRepository) QueryUserRequests(ctx context.Context, userID string) ([]payment.PaymentRequest, error) {
	defer repo.db.lock(ctx)()

	requests := make([]payment.PaymentRequest, 0)
	for _, pr := range repo.db.tables.payments {
		if pr.UserID == userID {
			requests = append(requests, pr)
		}
	}
	sort.Slice(requests, repo.newestFirst(
		func(i int) time.Time { return requests[i].CreatedAt },
		func(i int) string { return requests[i].ID },
	))
	return requests, nil
}

func (repo *paymentRepository) UpdateRequestStatus(ctx context.Context, id string, from, to payment.Status, at time.Time) (payment.PaymentRequest, error) {
	defer repo.db.lock(ctx)()
	pr, ok := repo.db.tables.payments[id]
	if !ok {
		return payment.PaymentRequest{}, payment.ErrNotFound
	}
	if pr.Status != from {
		return payment.PaymentRequest{}, payment.ErrInvalidTransition
	}
	pr.Status = to
	pr.ReviewedAt = at
	repo.db.tables.payments[id] = pr
	return pr, nil
}

func (repo *paymentRepository) CountRequests(ctx context.Context, status payment.Status) (int, error) {
	defer repo.db.lock(ctx)()
	var n int
	for _, pr := range repo.db.tables.payments {
		if pr.Status == status {
			n++
		}
	}
	return n, nil
}
