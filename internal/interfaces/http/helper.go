package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
)

// bindBody decode the request body into post and validate it, the returned error is
// a ready to send REST error
func bindBody(c echo.Context, v validate.Validator, post interface{}) error {
	if err := c.Bind(post); err != nil {
		detail := err.Error()
		if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
			detail = he.Internal.Error()
		}
		return NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind request body: "+detail)
	}
	if v == nil {
		return nil
	}
	if errs := v.Struct(post); errs != nil {
		return NewRESTValidationError(http.StatusBadRequest, "Failed to validate fields", errs)
	}
	return nil
}

// intQuery parse an optional integer query param
func intQuery(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewRESTValidationError(http.StatusBadRequest, "Failed to validate params",
			[]*validate.FieldError{validate.NewFieldError(name, name+" must be an integer")})
	}
	return n, nil
}

// optionalQuery nil when the param is absent or empty
func optionalQuery(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}

// mustClaims claims set by VerifyToken, routes using it are always behind that middleware
func mustClaims(ju *auth.JWTUtil, c echo.Context) *auth.AppTokenClaims {
	claims := ju.GetContextToken(c)
	if claims == nil {
		panic("route is not guarded by VerifyToken")
	}
	return claims
}
