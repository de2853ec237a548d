package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// domainStatus maps the sentinel errors of the core packages to a status code.
func domainStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, enrollment.ErrNotFound),
		errors.Is(err, lesson.ErrNotFound),
		errors.Is(err, payment.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, payment.ErrDuplicateReference),
		errors.Is(err, payment.ErrInvalidTransition),
		errors.Is(err, payment.ErrSubmitInProgress),
		errors.Is(err, payment.ErrStepOrder),
		errors.Is(err, payment.ErrSessionClosed),
		errors.Is(err, course.ErrInUse),
		errors.Is(err, lesson.ErrSequenceTaken),
		errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict, true
	case errors.Is(err, user.ErrAuthenticationFailed):
		return http.StatusBadRequest, true
	case errors.Is(err, user.ErrAccountDeactivated),
		errors.Is(err, lesson.ErrNoAccess):
		return http.StatusForbidden, true
	case core.IsTransient(err):
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var authErr *payment.AuthRequiredError
		if errors.As(err, &authErr) {
			code = http.StatusUnauthorized
			message = echo.Map{"error": authErr.Error(), "resume": authErr.Resume}
		} else {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default:
				if status, ok := domainStatus(err); ok {
					code = status
					message = errors.Cause(err).Error()
					if code == http.StatusServiceUnavailable {
						logger.Warn(err.Error())
						message = http.StatusText(code)
					}
					break
				}

				// any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			if ctx.Echo().Debug && code == http.StatusInternalServerError {
				m = err.Error()
			}
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
