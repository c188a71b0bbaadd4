package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meridian/er/pkg/validation"
)

// ErrorResponse is the body of every error reply. Detail is a string, or a
// list of field errors for validation failures.
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

// ErrorHandler renders handler errors as {"detail": ...}:
// validation errors become 422 with field details, echo HTTP errors keep
// their status and message, and anything else is logged and reported as 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		rid, _ := c.Get("request_id").(string)

		status := http.StatusInternalServerError
		body := ErrorResponse{Detail: http.StatusText(http.StatusInternalServerError)}

		var he *echo.HTTPError
		if ve, ok := validation.As(err); ok {
			status = http.StatusUnprocessableEntity
			body.Detail = ve.Fields
		} else if errors.As(err, &he) {
			status = he.Code
			body.Detail = he.Message
			if msg, ok := he.Message.(string); ok && msg == "" {
				body.Detail = http.StatusText(status)
			}
		} else {
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Str("request_id", rid).Msg("failed to write error response")
		}
	}
}
