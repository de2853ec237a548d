package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/user"
)

type enrollmentApi struct {
	svc   *enrollment.Service
	users *user.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := enrollmentApi{svc: s.deps.EnrollmentSvc, users: s.deps.UserSvc}

	eg := g.Group("/enrollments", jwt)
	eg.GET("/mine", api.mine)
	eg.POST("/:id/revoke", api.revoke, adminMiddleware())
}

// Handlers

func (api *enrollmentApi) mine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	grants, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user enrollments")
	}
	return ctx.JSON(http.StatusOK, grants)
}

func (api *enrollmentApi) revoke(ctx echo.Context) error {
	grant, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "revoking enrollment")
	}
	return ctx.JSON(http.StatusOK, grant)
}
