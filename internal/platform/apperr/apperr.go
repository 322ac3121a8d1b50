// Package apperr defines the error kinds surfaced by the API and renders
// them as {"message": ...} JSON bodies with a matching HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies an Error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindAuthorization
	KindNotFound
	KindInvalidCode
	KindEmailMismatch
	KindAlreadyLinked
	KindConflict
	KindPersistence
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindInvalidCode:
		return "invalid_code"
	case KindEmailMismatch:
		return "email_mismatch"
	case KindAlreadyLinked:
		return "already_linked"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidCode, KindEmailMismatch:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyLinked, KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Error is a classified, user-displayable error. Err carries the underlying
// cause and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newf(KindUnauthenticated, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindAuthorization, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// InvalidCode is returned when no unused, unexpired code matches the
// submitted patient and code.
func InvalidCode() *Error {
	return &Error{
		Kind:    KindInvalidCode,
		Message: "Invalid or expired verification code. Please contact your healthcare provider for a new code.",
	}
}

// EmailMismatch discloses the address the code was issued for.
func EmailMismatch(expected string) *Error {
	return newf(KindEmailMismatch,
		"This verification code was issued for %s. Please use the correct parent account or contact your healthcare provider.",
		expected)
}

func AlreadyLinked() *Error {
	return &Error{Kind: KindAlreadyLinked, Message: "This child is already linked to another parent account"}
}

// Persistence wraps a storage failure. The cause is logged, not rendered.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: "A storage error occurred. Please try again.", Err: fmt.Errorf("%s: %w", op, err)}
}

func Unavailable(msg string) *Error {
	return &Error{Kind: KindUnavailable, Message: msg}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

const pgUniqueViolation = "23505"

// FromDB classifies a database error. pgx.ErrNoRows becomes NotFound with
// the given message and unique violations become Conflict. Anything else is
// a Persistence error.
func FromDB(err error, op, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != 0 {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("%s", notFoundMsg)
	}
	if IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Message: "Resource already exists", Err: err}
	}
	return Persistence(op, err)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type errorBody struct {
	Message string `json:"message"`
}

// HTTPErrorHandler renders *Error and *echo.HTTPError values as
// {"message": ...}. Unclassified errors become 500 and are logged.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "Internal server error"

		var ae *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Kind.Status()
			msg = ae.Message
			if ae.Kind == KindPersistence {
				logger.Error().Err(ae.Err).Str("request_id", requestID(c)).Msg("persistence failure")
			}
		case errors.As(err, &he):
			status = he.Code
			msg = fmt.Sprintf("%v", he.Message)
		default:
			logger.Error().Err(err).Str("request_id", requestID(c)).Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorBody{Message: msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
