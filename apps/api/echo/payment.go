package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

type paymentApi struct {
	svc   *payment.Service
	users *user.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := paymentApi{svc: s.deps.PaymentSvc, users: s.deps.UserSvc}

	pg := g.Group("/payments", jwt)
	pg.GET("/mine", api.mine)

	// verifier endpoints
	vg := pg.Group("", adminMiddleware())
	vg.GET("/pending", api.pending)
	vg.POST("/:id/approve", api.approve)
	vg.POST("/:id/reject", api.reject)
}

// Handlers

func (api *paymentApi) mine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	requests, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user payment requests")
	}
	return ctx.JSON(http.StatusOK, requests)
}

func (api *paymentApi) pending(ctx echo.Context) error {
	requests, err := api.svc.ListPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending payment requests")
	}
	return ctx.JSON(http.StatusOK, requests)
}

func (api *paymentApi) approve(ctx echo.Context) error {
	pr, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving payment request")
	}
	return ctx.JSON(http.StatusOK, pr)
}

func (api *paymentApi) reject(ctx echo.Context) error {
	pr, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting payment request")
	}
	return ctx.JSON(http.StatusOK, pr)
}
