package nem

import (
	"fmt"
	"net/http"
)

// DefaultErrorHandler writes errors as plain text. HTTP errors keep their
// status; any other error becomes a 500. Outside production the cause and
// its stack trace follow the message.
func DefaultErrorHandler(production bool) ErrorHandlerFunc {
	return func(err error, req Request, res Response, next Next) error {
		if res.Written() {
			return nil
		}
		he := AsHTTPError(err)
		body := he.Message
		if !production && he.Internal != nil {
			body = fmt.Sprintf("%s\n\n%+v", he.Message, he.Internal)
		}
		res.ContentType("text/plain; charset=utf-8")
		res.Status(he.Code)
		return res.Send([]byte(body))
	}
}

// errorStatus returns the status an error handler would answer err with
func errorStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsHTTPError(err).Code
}
