package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
)

// HeaderRefreshedToken carries a reissued token for clients that send Bearer tokens instead of the cookie
const HeaderRefreshedToken = "X-Refreshed-Token"

// ValidateTokenOption ...
type ValidateTokenOption struct {
	// InBlackList reports signed out tokens, only consulted for tokens that pass validation
	InBlackList func(ctx context.Context, token string) (bool, error)
}

// RefreshTokenOption ...
type RefreshTokenOption struct {
	Threshold time.Duration
}

// VerifyToken validate JWT and store its claims in the context
func VerifyToken(ju *auth.JWTUtil, options ...*ValidateTokenOption) echo.MiddlewareFunc {
	var inBlacklist func(context.Context, string) (bool, error)
	if len(options) > 0 {
		inBlacklist = options[0].InBlackList
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := ju.ExtractToken(c)
			if err != nil {
				return c.NoContent(http.StatusUnauthorized)
			}
			claims, err := ju.Validate(tokenStr)
			if err != nil {
				return c.NoContent(http.StatusUnauthorized)
			}
			if inBlacklist != nil {
				revoked, err := inBlacklist(c.Request().Context(), tokenStr)
				if err != nil {
					return err
				}
				if revoked {
					ju.ClearClientToken(c)
					return c.NoContent(http.StatusUnauthorized)
				}
			}
			ju.SetContextToken(c, claims)
			return next(c)
		}
	}
}

// RefreshToken reissue the token when it is about to expire, must be chained after VerifyToken.
// The new token is set as cookie and echoed in HeaderRefreshedToken.
func RefreshToken(ju *auth.JWTUtil, options ...*RefreshTokenOption) echo.MiddlewareFunc {
	threshold := 5 * time.Minute
	if len(options) > 0 && options[0].Threshold > 0 {
		threshold = options[0].Threshold
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ju.GetContextToken(c)
			if claims == nil || claims.TimeRemaining() >= threshold {
				return next(c)
			}
			tokenStr, err := ju.Sign(ju.RefreshToken(claims))
			if err != nil {
				return err
			}
			ju.SetClientToken(c, tokenStr)
			c.Response().Header().Set(HeaderRefreshedToken, tokenStr)
			return next(c)
		}
	}
}
