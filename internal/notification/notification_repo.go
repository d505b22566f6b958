package notification

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

type NotificationRepositoryImpl struct {
	Conn driver.ITransactionalDB
}

var _ NotificationRepository = &NotificationRepositoryImpl{}

func NewNotificationRepository(Conn driver.ITransactionalDB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{Conn}
}

func (repo *NotificationRepositoryImpl) Insert(ctx context.Context, n *Notification) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO notifications(id, user_id, title, message, kind, link, read, created_at)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Kind), n.Link, n.Read, n.CreatedAt)
	return errors.Wrap(err, "insert notification")
}

func (repo *NotificationRepositoryImpl) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	query := `SELECT id, user_id, title, message, kind, link, read, created_at
	FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND read=FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := repo.Conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query notifications")
	}
	defer rows.Close()

	var result []*Notification
	for rows.Next() {
		var (
			n    Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		n.Kind = Kind(kind)
		result = append(result, &n)
	}
	return result, errors.Wrap(rows.Err(), "query notifications")
}

func (repo *NotificationRepositoryImpl) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	res, err := repo.Conn.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, "mark notification read")
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "mark notification read")
}

func (repo *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := repo.Conn.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND read=FALSE`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark notifications read")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "mark notifications read")
}

func (repo *NotificationRepositoryImpl) Recipient(ctx context.Context, userID string) (string, string, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT email, username FROM users WHERE id=$1`, userID)
	if err != nil {
		return "", "", errors.Wrap(err, "query recipient")
	}
	defer rows.Close()

	var email, name string
	if rows.Next() {
		if err := rows.Scan(&email, &name); err != nil {
			return "", "", errors.Wrap(err, "scan recipient")
		}
	}
	return email, name, errors.Wrap(rows.Err(), "query recipient")
}
