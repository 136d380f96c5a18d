package nem

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"` // cause, printed by the default error handler outside production
}

// Error makes HTTPError implement the error interface
func (he *HTTPError) Error() string {
	return he.Message
}

// Unwrap returns the wrapped cause
func (he *HTTPError) Unwrap() error {
	return he.Internal
}

// NewHTTPError creates a new HTTPError. The optional first element is the
// message (an empty string keeps the status text), the optional second
// element the internal cause.
func NewHTTPError(code int, message ...interface{}) *HTTPError {
	he := &HTTPError{Code: code, Message: StatusText(code)}
	if len(message) > 0 && message[0] != nil {
		if msg := fmt.Sprint(message[0]); msg != "" {
			he.Message = msg
		}
	}
	if len(message) > 1 {
		if err, ok := message[1].(error); ok && err != nil {
			he.Internal = withStack(err)
		}
	}
	return he
}

// StatusText returns a text for the HTTP status code
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

// ErrBadRequest creates a 400 Bad Request error
func ErrBadRequest(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message...)
}

// ErrUnauthorized creates a 401 Unauthorized error
func ErrUnauthorized(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message...)
}

// ErrForbidden creates a 403 Forbidden error
func ErrForbidden(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message...)
}

// ErrNotFound creates a 404 Not Found error
func ErrNotFound(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message...)
}

// ErrNotAcceptable creates a 406 Not Acceptable error
func ErrNotAcceptable(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusNotAcceptable, message...)
}

// ErrPreconditionFailed creates a 412 Precondition Failed error
func ErrPreconditionFailed(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusPreconditionFailed, message...)
}

// ErrUnsupportedMediaType creates a 415 Unsupported Media Type error
func ErrUnsupportedMediaType(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusUnsupportedMediaType, message...)
}

// ErrInternalServerError creates a 500 Internal Server Error
func ErrInternalServerError(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message...)
}

// ErrNotImplemented creates a 501 Not Implemented error
func ErrNotImplemented(message ...interface{}) *HTTPError {
	return NewHTTPError(http.StatusNotImplemented, message...)
}

// AsHTTPError returns err as an HTTPError. Errors that are not HTTP errors
// become a 500 wrapping the original error.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if stderrors.As(err, &he) {
		return he
	}
	return ErrInternalServerError(nil, err)
}

// IsConfigurationError reports whether err was raised while compiling modules
// or controllers.
func IsConfigurationError(err error) bool {
	var ce *nemerrors.ConfigurationError
	return stderrors.As(err, &ce)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func withStack(err error) error {
	var st stackTracer
	if stderrors.As(err, &st) {
		return err
	}
	return errors.WithStack(err)
}
