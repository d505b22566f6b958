package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/session"
)

// TrackSession record the identity of the token as the last-known user of its session.
// An identity already known for the same user is kept, it may carry a refreshed role.
func TrackSession(ju *auth.JWTUtil, directory *session.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if claims := ju.GetContextToken(c); claims != nil {
				s := directory.Session(claims.SessionID())
				if current, ok := s.Current(); ok && current.UserID == claims.UID {
					return next(c)
				}
				s.Set(session.Identity{
					UserID:   claims.UID,
					Email:    claims.Email,
					Username: claims.Name,
					Role:     claims.Role,
				})
			}
			return next(c)
		}
	}
}
