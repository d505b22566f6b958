package notification

import (
	"context"
	"time"

	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ListLimit maximum notifications returned by List
const ListLimit = 50

// NotificationUseCaseImpl ...
type NotificationUseCaseImpl struct {
	NotificationRepository NotificationRepository
	UUIDGenerator          uuid.Generator
	Pusher                 Pusher
	Mailer                 Mailer
	now                    func() time.Time
}

var _ NotificationUseCase = &NotificationUseCaseImpl{}

// NewNotificationUseCase Pusher and Mailer are optional
func NewNotificationUseCase(
	NotificationRepository NotificationRepository,
	UUIDGenerator uuid.Generator,
	Pusher Pusher,
	Mailer Mailer,
) *NotificationUseCaseImpl {
	return &NotificationUseCaseImpl{
		NotificationRepository: NotificationRepository,
		UUIDGenerator:          UUIDGenerator,
		Pusher:                 Pusher,
		Mailer:                 Mailer,
		now:                    time.Now,
	}
}

func (nu *NotificationUseCaseImpl) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	apmSpan, _ := apm.StartSpan(ctx, "NotificationUseCaseImpl.List", "service")
	defer apmSpan.End()

	return nu.NotificationRepository.List(ctx, userID, unreadOnly, ListLimit)
}

func (nu *NotificationUseCaseImpl) MarkRead(ctx context.Context, userID, id string) error {
	apmSpan, _ := apm.StartSpan(ctx, "NotificationUseCaseImpl.MarkRead", "service")
	defer apmSpan.End()

	ok, err := nu.NotificationRepository.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (nu *NotificationUseCaseImpl) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	apmSpan, _ := apm.StartSpan(ctx, "NotificationUseCaseImpl.MarkAllRead", "service")
	defer apmSpan.End()

	return nu.NotificationRepository.MarkAllRead(ctx, userID)
}

// Notify persist n, then push it to the user and mail it. Delivery failures are only logged.
func (nu *NotificationUseCaseImpl) Notify(ctx context.Context, n *Notification) error {
	apmSpan, ctx := apm.StartSpan(ctx, "NotificationUseCaseImpl.Notify", "service")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	id, err := nu.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	n.ID = id
	n.Read = false
	n.CreatedAt = nu.now()
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	if err := nu.NotificationRepository.Insert(ctx, n); err != nil {
		return err
	}

	if nu.Pusher != nil {
		delivered := nu.Pusher.SendToUser(n.UserID, map[string]interface{}{
			"type":    "NOTIFICATION",
			"payload": n,
		})
		logger.Debug("Notification pushed", zap.String("notification.id", n.ID), zap.Int("connections", delivered))
	}

	if nu.Mailer != nil {
		email, name, err := nu.NotificationRepository.Recipient(ctx, n.UserID)
		if err != nil {
			logger.Warn("Failed to look up notification recipient", zap.Error(err), zap.String("user.id", n.UserID))
			return nil
		}
		if email == "" {
			return nil
		}
		if err := nu.Mailer.Send(ctx, email, name, n); err != nil {
			logger.Warn("Failed to mail notification", zap.Error(err), zap.String("notification.id", n.ID))
		}
	}
	return nil
}
