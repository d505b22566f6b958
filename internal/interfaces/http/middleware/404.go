package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NoRouteMatched answer unmatched paths and methods with a bare status, the api prefix
// still gets the JSON error body from ErrorHandling
func NoRouteMatched(keep func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			v, ok := err.(*echo.HTTPError)
			if !ok || (v.Code != http.StatusNotFound && v.Code != http.StatusMethodNotAllowed) {
				return err
			}
			if keep != nil && keep(c) {
				return err
			}
			return c.NoContent(v.Code)
		}
	}
}
