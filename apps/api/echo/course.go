package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/user"
)

type courseApi struct {
	svc         *course.Service
	enrollments *enrollment.Service
	lessons     *lesson.Service
	users       *user.Service
	validate    *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, s *Server) {
	api := courseApi{
		svc:         s.deps.CourseSvc,
		enrollments: s.deps.EnrollmentSvc,
		lessons:     s.deps.LessonSvc,
		users:       s.deps.UserSvc,
		validate:    s.deps.Validate,
	}
	chk := newCheckoutApi(s)

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create, jwt, adminMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, jwt, adminMiddleware())
	dg.GET("/access", api.access, jwt)
	dg.GET("/lessons", api.listLessons, jwt)
	dg.POST("/lessons", api.createLesson, jwt, adminMiddleware())
	dg.DELETE("/lessons/:lessonId", api.destroyLesson, jwt, adminMiddleware())
	dg.GET("/checkout", chk.info)
	dg.POST("/checkout", chk.submit, checkoutBodyLimit, optionalJWT)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// access tells whether the signed in user holds an active enrollment for the course.
func (api *courseApi) access(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	ok, err := api.enrollments.HasAccess(ctx.Request().Context(), usr.ID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "checking course access")
	}
	return ctx.JSON(http.StatusOK, AccessResponse{CourseID: crs.ID, HasAccess: ok})
}

// listLessons lists the course content: admins see it all, students only once enrolled.
func (api *courseApi) listLessons(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	var lessons []lesson.Lesson
	if usr.IsAdmin() {
		lessons, err = api.lessons.List(ctx.Request().Context(), crs.ID)
	} else {
		lessons, err = api.lessons.ListUnlocked(ctx.Request().Context(), usr.ID, crs.ID)
	}
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	les, err := api.lessons.Create(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	if err := api.lessons.Delete(ctx.Request().Context(), ctx.Param("id"), ctx.Param("lessonId")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type AccessResponse struct {
	CourseID  string `json:"course_id"`
	HasAccess bool   `json:"has_access"`
}
