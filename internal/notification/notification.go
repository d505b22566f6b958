package notification

import (
	"context"
	"errors"
	"time"
)

// Kind category of a notification
type Kind string

const (
	KindInfo        Kind = "info"
	KindAchievement Kind = "achievement"
	KindCourse      Kind = "course"
	KindGrading     Kind = "grading"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotificationNotFound no notification with that id belongs to the user
var ErrNotificationNotFound = errors.New("Notification not found")

type NotificationRepository interface {
	Insert(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// Recipient e-mail address and display name of a user
	Recipient(ctx context.Context, userID string) (email, name string, err error)
}

// Pusher delivers a realtime message to the connections of a user
type Pusher interface {
	SendToUser(userID string, message interface{}) int
}

// Mailer delivers a notification by e-mail
type Mailer interface {
	Send(ctx context.Context, toEmail, toName string, n *Notification) error
}

type NotificationUseCase interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Notify(ctx context.Context, n *Notification) error
}
