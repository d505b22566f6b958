package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// AbortRequestOption .
type AbortRequestOption struct {
	Timeout time.Duration
	Skipper func(c echo.Context) bool
}

// AbortRequest bound the request context by Timeout, blocking calls made with it give up afterwards
func AbortRequest(option *AbortRequestOption) echo.MiddlewareFunc {
	skipper := option.Skipper
	if skipper == nil {
		skipper = func(echo.Context) bool { return false }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if option.Timeout <= 0 || skipper(c) {
				return next(c)
			}
			r := c.Request()
			ctx, cancel := context.WithTimeout(r.Context(), option.Timeout)
			defer cancel()
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}
