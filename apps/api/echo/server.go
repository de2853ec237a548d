package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

type (
	ServerDeps struct {
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		PaymentSvc    *payment.Service
		LessonSvc     *lesson.Service
		Storage       core.ObjectStorage
		Merchant      payment.Merchant
	}

	Server struct {
		conf      *core.Config
		logger    core.Logger
		deps      ServerDeps
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
		errors    chan error
		shutdown  chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps ServerDeps) *Server {
	s := &Server{
		conf:      conf,
		logger:    logger,
		deps:      deps,
		app:       echo.New(),
		jwtConfig: newJWTConfig(conf),
		errors:    make(chan error, 1),
		shutdown:  make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/", s.home)
	s.app.GET("/media/*", s.media)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConfig)
	optionalJWT := middleware.JWTWithConfig(optionalJWTConfig(s.jwtConfig))

	registerUserAPI(v1, jwt, s)
	registerCourseAPI(v1, jwt, optionalJWT, s)
	registerPaymentAPI(v1, jwt, s)
	registerEnrollmentAPI(v1, jwt, s)
	registerStatsAPI(v1, jwt, s)
}

// Start blocks serving HTTP; a failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}

// media serves uploaded objects with the content type they were stored with.
func (s *Server) media(ctx echo.Context) error {
	r, contentType, err := s.deps.Storage.Open(ctx.Request().Context(), ctx.Param("*"))
	if err != nil {
		if err == core.ErrObjectNotFound {
			return echo.ErrNotFound
		}
		return err
	}
	defer r.Close()
	return ctx.Stream(http.StatusOK, contentType, r)
}
