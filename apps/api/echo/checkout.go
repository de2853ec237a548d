package echoapi

import (
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
	"github.com/mahimaacademy/academy/services/metrics"
)

// a proof at the size limit plus the text fields fits
var checkoutBodyLimit = middleware.BodyLimit("6M")

type checkoutApi struct {
	courses  *course.Service
	users    *user.Service
	payments *payment.Service
	storage  core.ObjectStorage
	merchant payment.Merchant
	logger   core.Logger
}

func newCheckoutApi(s *Server) *checkoutApi {
	return &checkoutApi{
		courses:  s.deps.CourseSvc,
		users:    s.deps.UserSvc,
		payments: s.deps.PaymentSvc,
		storage:  s.deps.Storage,
		merchant: s.deps.Merchant,
		logger:   s.logger,
	}
}

// Handlers

// info returns what the payment step shows: the amount, UPI links and the QR code.
func (api *checkoutApi) info(ctx echo.Context) error {
	crs, err := api.courses.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, CheckoutInfoResponse{
		Course:       crs,
		Intent:       payment.UPIIntent(api.merchant, crs.ID, crs.Price),
		MaxProofSize: payment.MaxProofSize,
	})
}

// submit runs a whole checkout session from one multipart form:
// sender_name, transaction_id, acknowledged and the proof file.
func (api *checkoutApi) submit(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	crs, err := api.courses.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	checkout := payment.NewCheckout(crs.ID, crs.Price, payment.CheckoutDeps{
		Auth:    purchaser(ctx, api.users),
		Storage: api.storage,
		Ledger:  api.payments,
		Logger:  api.logger,
	})
	if err = checkout.Advance(reqCtx); err != nil {
		return checkoutFailed(err)
	}

	checkout.SetSenderName(ctx.FormValue("sender_name"))
	checkout.SetTransactionReference(ctx.FormValue("transaction_id"))
	ack, _ := strconv.ParseBool(ctx.FormValue("acknowledged"))
	checkout.Acknowledge(ack)

	if err = api.attachProof(ctx, checkout); err != nil {
		return checkoutFailed(err)
	}

	pr, err := checkout.Submit(reqCtx)
	if err != nil {
		return checkoutFailed(errors.Wrap(err, "submitting checkout"))
	}
	return ctx.JSON(http.StatusCreated, CheckoutResponse{Step: checkout.Step(), Request: pr})
}

// attachProof reads the uploaded proof, if any. A missing proof is reported by Submit.
func (api *checkoutApi) attachProof(ctx echo.Context, checkout *payment.Checkout) error {
	fh, err := ctx.FormFile("proof")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil
		}
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: "invalid multipart form", Internal: err}
	}
	if fh.Size > payment.MaxProofSize {
		return checkout.AttachProof(payment.Proof{Name: fh.Filename, Size: fh.Size})
	}

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening proof")
	}
	defer file.Close()

	data, err := ioutil.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "reading proof")
	}
	return checkout.AttachProof(payment.Proof{Name: fh.Filename, Size: fh.Size, Data: data})
}

func checkoutFailed(err error) error {
	reason := "error"
	switch {
	case errors.Is(err, payment.ErrAuthRequired):
		reason = "auth_required"
	case errors.Is(err, payment.ErrDuplicateReference):
		reason = "duplicate_reference"
	case core.IsValidation(err), errors.Is(err, payment.ErrValidationFailed):
		reason = "validation"
	case core.IsTransient(err):
		reason = "unavailable"
	}
	metrics.CheckoutFailed(reason)
	return err
}

// Request/Response data

type (
	CheckoutInfoResponse struct {
		Course       course.Course  `json:"course"`
		Intent       payment.Intent `json:"payment"`
		MaxProofSize int64          `json:"max_proof_size"`
	}

	CheckoutResponse struct {
		Step    payment.Step           `json:"step"`
		Request payment.PaymentRequest `json:"request"`
	}
)
