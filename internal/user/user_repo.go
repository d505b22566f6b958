package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
)

type UserRepositoryImpl struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ UserRepository = &UserRepositoryImpl{}

func NewUserRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *UserRepositoryImpl {
	return &UserRepositoryImpl{Conn, UUIDGenerator}
}

const userColumns = `id, username, password, email, role, login_retry, last_attempt, last_login, created_at`

func scanUser(rows driver.ISQLRows) (*UserModel, error) {
	user := new(UserModel)
	var role string
	if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &role,
		&user.LoginRetry, &user.LastAttempt, &user.LastLogin, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Role = Role(role)
	return user, nil
}

func (repo *UserRepositoryImpl) findOne(ctx context.Context, query string, args ...interface{}) (*UserModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	defer rows.Close()

	if rows.Next() {
		user, err := scanUser(rows)
		return user, errors.Wrap(err, "scan user")
	}
	return nil, errors.Wrap(rows.Err(), "query user")
}

// FindByCredential query user by username or email
func (repo *UserRepositoryImpl) FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error) {
	username, email := post.Username, post.Email
	if username == "" {
		username = email
	}
	if email == "" {
		email = username
	}
	return repo.findOne(ctx, `SELECT `+userColumns+`
	FROM users WHERE username=$1 OR email=$2`, username, email)
}

func (repo *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*UserModel, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (repo *UserRepositoryImpl) SaveUser(ctx context.Context, post *UserModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return errors.Wrap(err, "generate user id")
	}
	post.ID = id
	if post.Role == "" {
		post.Role = RoleStudent
	}

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO users(id, username, password, email, role)
	VALUES($1,$2,$3,$4,$5)`, post.ID, post.Username, post.Password, post.Email, string(post.Role))
	if driver.IsUniqueViolation(err) {
		return ErrDuplicatedUser
	}
	return errors.Wrap(err, "insert user")
}

func (repo *UserRepositoryImpl) UpdateLogin(ctx context.Context, post *UserModel) error {
	_, err := repo.Conn.ExecContext(ctx, `UPDATE users
	SET login_retry=$1,
			last_attempt=$2,
			last_login=$3
	WHERE id=$4`, post.LoginRetry, post.LastAttempt, post.LastLogin, post.ID)
	return errors.Wrap(err, "update user login")
}

func (repo *UserRepositoryImpl) UpdateRole(ctx context.Context, id string, role Role) error {
	_, err := repo.Conn.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, string(role), id)
	return errors.Wrap(err, "update user role")
}
