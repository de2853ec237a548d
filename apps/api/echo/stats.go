package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

type statsApi struct {
	users       *user.Service
	courses     *course.Service
	enrollments *enrollment.Service
	payments    *payment.Service
}

func registerStatsAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := statsApi{
		users:       s.deps.UserSvc,
		courses:     s.deps.CourseSvc,
		enrollments: s.deps.EnrollmentSvc,
		payments:    s.deps.PaymentSvc,
	}
	g.GET("/stats", api.dashboard, jwt, adminMiddleware())
}

// StatsResponse holds the admin dashboard counters.
type StatsResponse struct {
	Students          int `json:"students"`
	Courses           int `json:"courses"`
	PendingPayments   int `json:"pending_payments"`
	ActiveEnrollments int `json:"active_enrollments"`
}

func (api *statsApi) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	var (
		stats StatsResponse
		err   error
	)

	if stats.Students, err = api.users.CountStudents(reqCtx); err != nil {
		return errors.Wrap(err, "counting students")
	}
	if stats.Courses, err = api.courses.Count(reqCtx); err != nil {
		return errors.Wrap(err, "counting courses")
	}
	if stats.PendingPayments, err = api.payments.CountPending(reqCtx); err != nil {
		return errors.Wrap(err, "counting pending payments")
	}
	if stats.ActiveEnrollments, err = api.enrollments.CountActive(reqCtx); err != nil {
		return errors.Wrap(err, "counting active enrollments")
	}
	return ctx.JSON(http.StatusOK, stats)
}
