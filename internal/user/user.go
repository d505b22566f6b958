package user

import (
	"context"
	"errors"
	"time"
)

// Role access level of a user
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor teachers and admins may create and edit courses
func (r Role) CanAuthor() bool {
	return r == RoleTeacher || r == RoleAdmin
}

type UserModel struct {
	ID          string     `json:"id"`
	Username    string     `json:"username" validate:"required,min=3,max=32"`
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password,omitempty" validate:"required,min=8,max=72"`
	Role        Role       `json:"role"`
	LoginRetry  int        `json:"-"`
	LastAttempt *time.Time `json:"-"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ErrNoSuchUser failed to validate the credential
var ErrNoSuchUser = errors.New("No such user or password is incorrect")

// ErrDuplicatedUser unique key constraint violation
var ErrDuplicatedUser = errors.New("Username or email is already registered")

// ErrUserTooManyRetry login attempts exceeded
var ErrUserTooManyRetry = errors.New("Too many failed login attempts, try again later")

// ErrInvalidRole role is not one of student, teacher or admin
var ErrInvalidRole = errors.New("Unknown role")

type UserUseCase interface {
	SignUp(ctx context.Context, post *UserModel) (*UserModel, error)
	SignIn(ctx context.Context, credential, password string) (*UserModel, error)
	SignOut(ctx context.Context, sessionID string)
	Exists(ctx context.Context, post *UserModel) (bool, error)
	FindByID(ctx context.Context, id string) (*UserModel, error)
	CacheRole(ctx context.Context, sessionID, userID string, role Role)
	ResolveRole(ctx context.Context, sessionID, userID string) (Role, error)
	RefreshRole(ctx context.Context, sessionID, userID string) (Role, error)
	UpdateRole(ctx context.Context, userID string, role Role) error
}

type UserRepository interface {
	FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error)
	FindByID(ctx context.Context, id string) (*UserModel, error)
	SaveUser(ctx context.Context, post *UserModel) error
	UpdateLogin(ctx context.Context, post *UserModel) error
	UpdateRole(ctx context.Context, id string, role Role) error
}
