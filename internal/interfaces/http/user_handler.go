package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"github.com/pot-code/learnhub/internal/session"
	"github.com/pot-code/learnhub/internal/user"
)

// UserHandler user related operations
type UserHandler struct {
	JWTUtil     *auth.JWTUtil
	KVStore     driver.KeyValueDB
	UserUseCase user.UserUseCase
	Sessions    *session.Directory
	SessionID   uuid.Generator
	Validator   validate.Validator
}

// NewUserHandler create an user controller instance
func NewUserHandler(
	JWTUtil *auth.JWTUtil,
	KVStore driver.KeyValueDB,
	UserUseCase user.UserUseCase,
	Sessions *session.Directory,
	SessionID uuid.Generator,
	Validator validate.Validator,
) *UserHandler {
	return &UserHandler{
		JWTUtil:     JWTUtil,
		KVStore:     KVStore,
		UserUseCase: UserUseCase,
		Sessions:    Sessions,
		SessionID:   SessionID,
		Validator:   Validator,
	}
}

type signInPost struct {
	Username string `json:"username" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

type signInResult struct {
	User  *user.UserModel `json:"user"`
	Token string          `json:"token"`
}

// HandleSignIn ...
func (uh *UserHandler) HandleSignIn(c echo.Context) error {
	ju := uh.JWTUtil
	post := new(signInPost)
	if err := bindBody(c, uh.Validator, post); err != nil {
		return err
	}

	ctx := c.Request().Context()
	u, err := uh.UserUseCase.SignIn(ctx, post.Username, post.Password)
	if err != nil {
		return err
	}

	// every sign in opens a new session
	sid, err := uh.SessionID.Generate()
	if err != nil {
		return err
	}
	tokenStr, err := ju.Issue(u.ID, u.Email, u.Username, string(u.Role), sid)
	if err != nil {
		return err
	}
	uh.UserUseCase.CacheRole(ctx, sid, u.ID, u.Role)
	uh.Sessions.Session(sid).Set(session.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     string(u.Role),
	})
	ju.SetClientToken(c, tokenStr)
	return c.JSON(http.StatusOK, &signInResult{User: u, Token: tokenStr})
}

// HandleSignUp ...
func (uh *UserHandler) HandleSignUp(c echo.Context) error {
	post := new(user.UserModel)
	if err := bindBody(c, uh.Validator, post); err != nil {
		return err
	}

	u, err := uh.UserUseCase.SignUp(c.Request().Context(), post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// HandleSignOut blacklist the token until it expires and drop session state
func (uh *UserHandler) HandleSignOut(c echo.Context) error {
	ju := uh.JWTUtil

	tokenStr, err := ju.ExtractToken(c)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	token, err := ju.Validate(tokenStr)
	if err != nil {
		ju.ClearClientToken(c)
		return c.NoContent(http.StatusUnauthorized)
	}

	ctx := c.Request().Context()
	if err := uh.KVStore.SetEX(ctx, blacklistKey(tokenStr), token.UID, token.TimeRemaining()); err != nil {
		return err
	}
	uh.UserUseCase.SignOut(ctx, token.SessionID())
	uh.Sessions.Forget(token.SessionID())
	ju.ClearClientToken(c)
	return c.NoContent(http.StatusNoContent)
}

// HandleUserExists ...
func (uh *UserHandler) HandleUserExists(c echo.Context) error {
	post := new(user.UserModel)
	post.Username = c.QueryParam("username")
	post.Email = c.QueryParam("email")

	if err := uh.Validator.AllEmpty([]string{"username", "email"}, post.Username, post.Email); err != nil {
		return NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", []*validate.FieldError{err})
	}

	existing, err := uh.UserUseCase.Exists(c.Request().Context(), post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, existing)
}

// HandleMe last-known identity of the session
func (uh *UserHandler) HandleMe(c echo.Context) error {
	claims := mustClaims(uh.JWTUtil, c)
	if s, ok := uh.Sessions.Lookup(claims.SessionID()); ok {
		if identity, known := s.Current(); known {
			return c.JSON(http.StatusOK, identity)
		}
	}

	u, err := uh.UserUseCase.FindByID(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	identity := session.Identity{UserID: u.ID, Email: u.Email, Username: u.Username, Role: string(u.Role)}
	uh.Sessions.Session(claims.SessionID()).Set(identity)
	return c.JSON(http.StatusOK, identity)
}

// HandleRefreshRole re-fetch the role, bypassing the session cache
func (uh *UserHandler) HandleRefreshRole(c echo.Context) error {
	claims := mustClaims(uh.JWTUtil, c)
	role, err := uh.UserUseCase.RefreshRole(c.Request().Context(), claims.SessionID(), claims.UID)
	if err != nil {
		return err
	}
	s := uh.Sessions.Session(claims.SessionID())
	if identity, ok := s.Current(); ok {
		identity.Role = string(role)
		s.Set(identity)
	}
	return c.JSON(http.StatusOK, map[string]user.Role{"role": role})
}

type rolePost struct {
	Role user.Role `json:"role" validate:"required,oneof=student teacher admin"`
}

// HandleUpdateRole admin only
func (uh *UserHandler) HandleUpdateRole(c echo.Context) error {
	post := new(rolePost)
	if err := bindBody(c, uh.Validator, post); err != nil {
		return err
	}
	if err := uh.UserUseCase.UpdateRole(c.Request().Context(), c.Param("id"), post.Role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
