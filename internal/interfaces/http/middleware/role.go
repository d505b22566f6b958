package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/user"
)

// ContextRoleKey resolved role in echo context
const ContextRoleKey = "role"

// RoleResolver .
type RoleResolver interface {
	ResolveRole(ctx context.Context, sessionID, userID string) (user.Role, error)
}

// RequireRole reject users whose role is not in allowed, must be chained after VerifyToken.
// The role comes from the session role cache, not from the token, so role changes apply
// without signing in again.
func RequireRole(ju *auth.JWTUtil, resolver RoleResolver, allowed ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ju.GetContextToken(c)
			if claims == nil {
				return c.NoContent(http.StatusUnauthorized)
			}
			role, err := resolver.ResolveRole(c.Request().Context(), claims.SessionID(), claims.UID)
			if err != nil {
				return err
			}
			c.Set(ContextRoleKey, role)
			for _, r := range allowed {
				if r == role {
					return next(c)
				}
			}
			return c.NoContent(http.StatusForbidden)
		}
	}
}

// GetContextRole role set by RequireRole, empty when it did not run
func GetContextRole(c echo.Context) user.Role {
	role, _ := c.Get(ContextRoleKey).(user.Role)
	return role
}
