package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/session"
	"github.com/pot-code/learnhub/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticResolver struct {
	role user.Role
	err  error
}

func (sr staticResolver) ResolveRole(ctx context.Context, sessionID, userID string) (user.Role, error) {
	return sr.role, sr.err
}

func ok(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, ju *auth.JWTUtil) string {
	tokenStr, err := ju.Issue("u1", "a@b.c", "alice", "student", "sid")
	require.NoError(t, err)
	return "Bearer " + tokenStr
}

func TestVerifyToken(t *testing.T) {
	ju := auth.NewJWTUtil("HS256", "secret", "token", time.Hour)
	blacklisted := ""
	e := echo.New()
	e.GET("/", ok, VerifyToken(ju, &ValidateTokenOption{
		InBlackList: func(ctx context.Context, token string) (bool, error) {
			return token == blacklisted, nil
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	header := bearer(t, ju)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, header)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	blacklisted = header[len("Bearer "):]
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, header)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRefreshToken(t *testing.T) {
	ju := auth.NewJWTUtil("HS256", "secret", "token", time.Minute)
	e := echo.New()
	e.GET("/", ok, VerifyToken(ju), RefreshToken(ju, &RefreshTokenOption{Threshold: 10 * time.Minute}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, ju))
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "token=")
	refreshed := rec.Header().Get(HeaderRefreshedToken)
	require.NotEmpty(t, refreshed)
	claims, err := ju.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "sid", claims.SessionID())
}

func TestRequireRole(t *testing.T) {
	ju := auth.NewJWTUtil("HS256", "secret", "token", time.Hour)
	cases := []struct {
		name     string
		resolver staticResolver
		code     int
	}{
		{"allowed", staticResolver{role: user.RoleTeacher}, http.StatusOK},
		{"denied", staticResolver{role: user.RoleStudent}, http.StatusForbidden},
		{"resolver error", staticResolver{err: errors.New("down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/", func(c echo.Context) error {
				assert.Equal(t, user.RoleTeacher, GetContextRole(c))
				return ok(c)
			}, VerifyToken(ju), RequireRole(ju, tc.resolver, user.RoleTeacher, user.RoleAdmin))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(echo.HeaderAuthorization, bearer(t, ju))
			assert.Equal(t, tc.code, serve(e, req).Code)
		})
	}
}

func TestTrackSession(t *testing.T) {
	ju := auth.NewJWTUtil("HS256", "secret", "token", time.Hour)
	dir := session.NewDirectory(time.Hour)
	e := echo.New()
	e.GET("/", ok, VerifyToken(ju), TrackSession(ju, dir))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, ju))
	require.Equal(t, http.StatusOK, serve(e, req).Code)

	s, found := dir.Lookup("sid")
	require.True(t, found)
	id, known := s.Current()
	require.True(t, known)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "alice", id.Username)
}

func TestAbortRequest(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		deadline, has := c.Request().Context().Deadline()
		require.True(t, has)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
		return ok(c)
	}, AbortRequest(&AbortRequestOption{Timeout: time.Second}))

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestErrorAndPanicHandling(t *testing.T) {
	var handled error
	e := echo.New()
	e.Use(PanicHandling(&PanicHandlingOption{Logger: zap.NewNop()}))
	e.Use(ErrorHandling(&ErrorHandlingOption{
		Handler: func(c echo.Context, traceID string, err error) {
			handled = err
			c.NoContent(http.StatusTeapot)
		},
	}))
	e.GET("/error", func(c echo.Context) error { return errors.New("boom") })
	e.GET("/panic", func(c echo.Context) error { panic("oops") })

	assert.Equal(t, http.StatusTeapot, serve(e, httptest.NewRequest(http.MethodGet, "/error", nil)).Code)
	assert.EqualError(t, handled, "boom")
	assert.Equal(t, http.StatusInternalServerError, serve(e, httptest.NewRequest(http.MethodGet, "/panic", nil)).Code)
}

func TestNoRouteMatched(t *testing.T) {
	e := echo.New()
	e.Use(NoRouteMatched(nil))
	e.GET("/", ok)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
