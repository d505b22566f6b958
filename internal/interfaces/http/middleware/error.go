package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandlingOption options for error handling
type ErrorHandlingOption struct {
	Handler func(c echo.Context, traceID string, err error)
}

// ErrorHandling turn errors returned from handlers into responses
// **DO NOT return error anymore**
func ErrorHandling(options ...*ErrorHandlingOption) echo.MiddlewareFunc {
	handler := func(c echo.Context, traceID string, err error) {
		c.NoContent(http.StatusInternalServerError)
	}
	if len(options) > 0 && options[0].Handler != nil {
		handler = options[0].Handler
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			traceID := c.Response().Header().Get(echo.HeaderXRequestID)
			if traceID == "" {
				traceID = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if c.Response().Committed {
				return nil
			}
			handler(c, traceID, err)
			return nil
		}
	}
}
