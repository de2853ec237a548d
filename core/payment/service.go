package payment

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/enrollment"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateRequest fails with ErrDuplicateReference when the transaction reference is taken.
		// Uniqueness is enforced by the store itself, never by a prior lookup.
		CreateRequest(ctx context.Context, pr PaymentRequest) (PaymentRequest, error)
		GetRequest(ctx context.Context, id string) (PaymentRequest, error)
		GetRequestDetail(ctx context.Context, id string) (RequestDetail, error)
		// QueryRequestsByStatus lists requests in status, newest first.
		QueryRequestsByStatus(ctx context.Context, status Status) ([]RequestDetail, error)
		// QueryUserRequests lists the requests of a user, newest first.
		QueryUserRequests(ctx context.Context, userID string) ([]PaymentRequest, error)
		// UpdateRequestStatus moves a request from one status to another in a single conditional write.
		// It fails with ErrNotFound for an unknown id and ErrInvalidTransition when the request is not in from.
		UpdateRequestStatus(ctx context.Context, id string, from, to Status, at time.Time) (PaymentRequest, error)
		CountRequests(ctx context.Context, status Status) (int, error)
	}

	// Granter issues enrollment grants, idempotently.
	Granter interface {
		Grant(ctx context.Context, userID, courseID string) (enrollment.Grant, error)
	}

	Deps struct {
		Repo     Repository
		Tx       core.Transactor
		Grants   Granter
		Validate *validator.Validate
		Mail     core.EmailService
		Events   core.EventPublisher
		Logger   core.Logger
	}

	// Service is the payment request ledger.
	Service struct {
		repo     Repository
		tx       core.Transactor
		grants   Granter
		validate *validator.Validate
		mail     core.EmailService
		events   core.EventPublisher
		logger   core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:     deps.Repo,
		tx:       deps.Tx,
		grants:   deps.Grants,
		validate: deps.Validate,
		mail:     deps.Mail,
		events:   deps.Events,
		logger:   deps.Logger,
	}
}

// Create records a new pending payment request.
func (svc *Service) Create(ctx context.Context, nr NewPaymentRequest) (PaymentRequest, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return PaymentRequest{}, err
	}

	pr, err := svc.repo.CreateRequest(ctx, PaymentRequest{
		UserID:         nr.UserID,
		CourseID:       nr.CourseID,
		Amount:         nr.Amount.Round(2),
		TransactionRef: nr.TransactionRef,
		SenderName:     nr.SenderName,
		ProofURL:       nr.ProofURL,
		Status:         StatusPending,
		CreatedAt:      NowFunc().UTC(),
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	svc.publish(ctx, EventSubmitted, pr)
	return pr, nil
}

func (svc *Service) Get(ctx context.Context, id string) (PaymentRequest, error) {
	return svc.repo.GetRequest(ctx, id)
}

// ListPending returns pending requests with their purchaser and course, newest first.
func (svc *Service) ListPending(ctx context.Context) ([]RequestDetail, error) {
	return svc.repo.QueryRequestsByStatus(ctx, StatusPending)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]PaymentRequest, error) {
	return svc.repo.QueryUserRequests(ctx, userID)
}

func (svc *Service) CountPending(ctx context.Context) (int, error) {
	return svc.repo.CountRequests(ctx, StatusPending)
}

// Approve marks a pending request approved and grants the purchaser access to the course.
// Both writes commit together or not at all.
func (svc *Service) Approve(ctx context.Context, id string) (PaymentRequest, error) {
	var pr PaymentRequest
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		pr, err = svc.repo.UpdateRequestStatus(ctx, id, StatusPending, StatusApproved, NowFunc().UTC())
		if err != nil {
			return err
		}
		_, err = svc.grants.Grant(ctx, pr.UserID, pr.CourseID)
		return errors.Wrap(err, "granting enrollment")
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	svc.notify(ctx, pr, "payment_approved", "Your payment has been approved")
	svc.publish(ctx, EventApproved, pr)
	return pr, nil
}

// Reject marks a pending request rejected. No access is granted.
func (svc *Service) Reject(ctx context.Context, id string) (PaymentRequest, error) {
	pr, err := svc.repo.UpdateRequestStatus(ctx, id, StatusPending, StatusRejected, NowFunc().UTC())
	if err != nil {
		return PaymentRequest{}, err
	}

	svc.notify(ctx, pr, "payment_rejected", "Your payment could not be verified")
	svc.publish(ctx, EventRejected, pr)
	return pr, nil
}

func (svc *Service) publish(ctx context.Context, key string, pr PaymentRequest) {
	if svc.events == nil {
		return
	}
	if err := svc.events.Publish(ctx, key, newEvent(key, pr)); err != nil {
		svc.logger.Error(errors.Wrapf(err, "publishing %s for %s", key, pr.ID).Error())
	}
}

// notify emails the purchaser about the outcome of the review.
func (svc *Service) notify(ctx context.Context, pr PaymentRequest, tmpl, subject string) {
	if svc.mail == nil {
		return
	}
	detail, err := svc.repo.GetRequestDetail(ctx, pr.ID)
	if err != nil {
		svc.logger.Error(errors.Wrapf(err, "loading payment request %s for notification", pr.ID).Error())
		return
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: detail.UserName, Address: detail.UserEmail}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]interface{}{
			"Name":           detail.UserName,
			"Amount":         detail.Amount.StringFixed(2),
			"CourseTitle":    detail.CourseTitle,
			"TransactionRef": detail.TransactionRef,
		},
	})
}
