package echoapi

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/core/position"
)

const (
	loginPath         = "/login"
	notInstructorPath = "/not-instructor"

	msgInvalidData = "Invalid data"
	msgMissingKey  = "Missing or invalid object key"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNotInstructor = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "Unauthorized access")
)

// actionError carries the message shown to the user when an action fails unexpectedly.
type actionError struct {
	err     error
	message string
}

func (e *actionError) Error() string { return e.message + ": " + e.err.Error() }
func (e *actionError) Cause() error  { return e.err }
func (e *actionError) Unwrap() error { return e.err }

// failed wraps err so that unknown failures surface as `message`.
func failed(err error, message string) error {
	if err == nil {
		return nil
	}
	return &actionError{err: err, message: message}
}

// toast turns an error text into the message displayed to the user.
func toast(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		res := core.Failure(http.StatusText(http.StatusInternalServerError))

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			res.Message = httpErrorMessage(origErr)
			switch origErr {
			case errUnauthorized:
				res.Redirect = loginPath
			case errNotInstructor:
				res.Redirect = notInstructorPath
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			res.Message = msgInvalidData
			res.Fields = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.Message = msgInvalidData
			if origErr.Err != nil {
				res.Message = toast(origErr.Err)
			}
			if len(origErr.Fields) > 0 {
				res.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					res.Fields[fErr.Field] = fErr.Error
				}
			}
		default:
			switch origErr {
			case course.ErrNotFound, course.ErrChapterNotFound, course.ErrLessonNotFound, course.ErrInstructorNotFound:
				code = http.StatusNotFound
				res.Message = toast(origErr)
			case course.ErrNoChapters, course.ErrNoLessons, instructor.ErrEmailExists,
				position.ErrEmpty, position.ErrDuplicateID, position.ErrUnknownID,
				position.ErrMissingID, position.ErrBadPosition:
				code = http.StatusBadRequest
				res.Message = toast(origErr)
			case core.ErrPermissionDenied:
				code = http.StatusForbidden
				res.Message = errHttpForbidden.Message.(string)
			default: // any other error is a server error
				var aErr *actionError
				if errors.As(err, &aErr) {
					res.Message = aErr.message
				}
				sess, _ := getContextSession(ctx)
				logger.Error(res.Message, err, sess)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func httpErrorMessage(herr *echo.HTTPError) string {
	if msg, ok := herr.Message.(string); ok {
		return msg
	}
	return strings.ToLower(http.StatusText(herr.Code))
}
