package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/session"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserUseCaseImpl ...
type UserUseCaseImpl struct {
	UserRepository   UserRepository
	Sessions         session.Provider
	MaxLoginAttempts int
	RetryTimeout     time.Duration
	RoleExpiry       time.Duration
	now              func() time.Time
}

var _ UserUseCase = &UserUseCaseImpl{}

// NewUserUseCase ...
func NewUserUseCase(
	UserRepository UserRepository,
	Sessions session.Provider,
	MaxLoginAttempts int,
	RetryTimeout time.Duration,
	RoleExpiry time.Duration,
) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		UserRepository:   UserRepository,
		Sessions:         Sessions,
		MaxLoginAttempts: MaxLoginAttempts,
		RetryTimeout:     RetryTimeout,
		RoleExpiry:       RoleExpiry,
		now:              time.Now,
	}
}

func (uu *UserUseCaseImpl) roleCache(sessionID string) *session.RoleCache {
	return session.NewRoleCache(uu.Sessions.Scope(sessionID),
		session.WithRoleExpiry(uu.RoleExpiry),
		session.WithRoleClock(uu.now))
}

// SignUp create a user
func (uu *UserUseCaseImpl) SignUp(ctx context.Context, post *UserModel) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignUp", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	// search for existence
	if m, err := ur.FindByCredential(ctx, post); err != nil {
		return nil, err
	} else if m != nil {
		return nil, ErrDuplicatedUser
	}

	password, err := bcrypt.GenerateFromPassword([]byte(post.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	post.Password = string(password)
	post.Role = RoleStudent
	post.CreatedAt = uu.now()

	if err := ur.SaveUser(ctx, post); err != nil {
		return nil, err
	}
	post.Password = ""
	return post, nil
}

// SignIn verify the credential, failed attempts are counted and the user is locked
// for RetryTimeout after MaxLoginAttempts failures
func (uu *UserUseCaseImpl) SignIn(ctx context.Context, credential, password string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignIn", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	logger := logging.ExtractLoggerFromContext(ctx)
	user, err := ur.FindByCredential(ctx, &UserModel{Username: credential, Email: credential})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSuchUser
	}

	now := uu.now()
	if uu.MaxLoginAttempts > 0 && user.LoginRetry >= uu.MaxLoginAttempts {
		if user.LastAttempt != nil && now.Sub(*user.LastAttempt) < uu.RetryTimeout {
			return nil, ErrUserTooManyRetry
		}
		user.LoginRetry = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if err != bcrypt.ErrMismatchedHashAndPassword {
			return nil, errors.Wrap(err, "compare password")
		}
		user.LoginRetry++
		user.LastAttempt = &now
		if err := ur.UpdateLogin(ctx, user); err != nil {
			logger.Error("Failed to record login attempt", zap.Error(err), zap.String("user.id", user.ID))
		}
		return nil, ErrNoSuchUser
	}

	user.LoginRetry = 0
	user.LastAttempt = &now
	user.LastLogin = &now
	if err := ur.UpdateLogin(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// SignOut drop session scoped state
func (uu *UserUseCaseImpl) SignOut(ctx context.Context, sessionID string) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.SignOut", "service")
	defer apmSpan.End()

	uu.roleCache(sessionID).Clear(ctx)
}

// Exists find if user exists in database
func (uu *UserUseCaseImpl) Exists(ctx context.Context, post *UserModel) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.Exists", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByCredential(ctx, post)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (uu *UserUseCaseImpl) FindByID(ctx context.Context, id string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.FindByID", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSuchUser
	}
	user.Password = ""
	return user, nil
}

// CacheRole seed the role cache of a fresh session
func (uu *UserUseCaseImpl) CacheRole(ctx context.Context, sessionID, userID string, role Role) {
	uu.roleCache(sessionID).Set(ctx, userID, string(role))
}

// ResolveRole role of userID, the session role cache is consulted first
func (uu *UserUseCaseImpl) ResolveRole(ctx context.Context, sessionID, userID string) (Role, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.ResolveRole", "service")
	defer apmSpan.End()

	rc := uu.roleCache(sessionID)
	if role, ok := rc.Get(ctx, userID); ok {
		return Role(role), nil
	}

	user, err := uu.UserRepository.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrNoSuchUser
	}
	rc.Set(ctx, userID, string(user.Role))
	return user.Role, nil
}

// RefreshRole drop the cached role and fetch it again
func (uu *UserUseCaseImpl) RefreshRole(ctx context.Context, sessionID, userID string) (Role, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.RefreshRole", "service")
	defer apmSpan.End()

	uu.roleCache(sessionID).Clear(ctx)
	return uu.ResolveRole(ctx, sessionID, userID)
}

// UpdateRole change the role of a user, sessions of that user pick it up once their cache entry expires
// or RefreshRole is called
func (uu *UserUseCaseImpl) UpdateRole(ctx context.Context, userID string, role Role) error {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.UpdateRole", "service")
	defer apmSpan.End()

	if !role.Valid() {
		return ErrInvalidRole
	}
	user, err := uu.UserRepository.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNoSuchUser
	}
	return uu.UserRepository.UpdateRole(ctx, userID, role)
}
